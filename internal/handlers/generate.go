package handlers

import (
	"context"
	"fmt"
	"html/template"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmaxmax/go-sse"
	"github.com/vibeworks/code-studio/internal/markdown"
	"github.com/vibeworks/code-studio/internal/models"
)

type message struct {
	ID        string
	Role      string
	Content   template.HTML
	Timestamp time.Time

	StreamingState string
}

// session adapts the provider stream to the append-only update loop: a mid-stream transport or API
// failure surfaces as a single terminal, human-readable fragment instead of a raised fault, so the
// user always sees some terminal content rather than a stuck streaming indicator.
type session struct {
	llm LLM
}

func (s session) stream(ctx context.Context, messages []models.Message) iter.Seq[string] {
	return func(yield func(string) bool) {
		for fragment, err := range s.llm.Chat(ctx, messages) {
			if err != nil {
				yield(fmt.Sprintf("\n\n(Error: %s)", err))
				return
			}
			if fragment == "" {
				continue
			}
			if !yield(fragment) {
				return
			}
		}
	}
}

// HandleGenerate processes a prompt submission through an HTTP POST request. It appends the user
// message and a streaming placeholder to the conversation, starts the asynchronous exchange with
// the model, and renders the two message partials as its response. Fragments are then streamed to
// the browser through Server-Sent Events on the placeholder's topic.
//
// The handler expects a "message" form field. Submissions are rejected with 409 Conflict while a
// streamed exchange is active: excess submissions are dropped, not queued.
func (m Main) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	msg := strings.TrimSpace(r.FormValue("message"))
	if msg == "" {
		m.logger.Error("Message is required")
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	placeholder, history, ok := m.state.begin(msg)
	if !ok {
		m.logger.Warn("Submission dropped, a generation is already in progress")
		http.Error(w, "A generation is already in progress", http.StatusConflict)
		return
	}

	go m.generate(placeholder.ID, msg, history)

	um := history[len(history)-1]
	userView, err := m.messageView(um)
	if err != nil {
		m.logger.Error("Failed to render message",
			slog.String("message", fmt.Sprintf("%+v", um)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := m.templates.ExecuteTemplate(w, "user_message", userView); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	placeholderView, err := m.messageView(placeholder)
	if err != nil {
		m.logger.Error("Failed to render message",
			slog.String("message", fmt.Sprintf("%+v", placeholder)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := m.templates.ExecuteTemplate(w, "ai_message", placeholderView); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// generate is the streaming worker: it pulls fragments from the model, applies each one to the
// placeholder message, re-runs the code extractor, and pushes message and document updates to the
// browser. It runs until the stream is exhausted; there is at most one instance at a time.
func (m Main) generate(messageID, prompt string, history []models.Message) {
	// Ensure SSE connection cleanup on function exit
	defer func() {
		e := &sse.Message{Type: sse.Type("closeMessage")}
		e.AppendData("bye")
		_ = m.sseSrv.Publish(e, messageIDTopic(messageID))
	}()

	documentChanged := false

	for fragment := range m.session.stream(context.Background(), history) {
		text, document, changed := m.state.appendFragment(messageID, fragment)

		if changed {
			documentChanged = true
			m.publishDocument(document)
		}

		rendered, err := markdown.Render(text)
		if err != nil {
			m.logger.Error("Failed to render message",
				slog.String("messageID", messageID),
				slog.String(errLoggerKey, err.Error()))
			continue
		}

		msg := sse.Message{
			Type: messagesSSEType,
		}
		msg.AppendData(rendered)
		if err := m.sseSrv.Publish(&msg, messageIDTopic(messageID)); err != nil {
			m.logger.Error("Failed to publish message",
				slog.String("messageID", messageID),
				slog.String(errLoggerKey, err.Error()))
			// The streaming flag must still transition, so fall through to endStream.
			break
		}
	}

	final := m.state.endStream(messageID)

	if documentChanged && m.store != nil {
		_, document := m.state.snapshot()
		if _, err := m.store.AddRevision(context.Background(), models.Revision{
			ID:        messageID,
			Prompt:    prompt,
			Document:  document,
			CreatedAt: time.Now(),
		}); err != nil {
			// A failed snapshot never fails the stream.
			m.logger.Error("Failed to save revision",
				slog.String(errLoggerKey, err.Error()))
		}
	}

	rendered, err := markdown.Render(final.Text)
	if err != nil {
		m.logger.Error("Failed to render message",
			slog.String("messageID", messageID),
			slog.String(errLoggerKey, err.Error()))
		return
	}
	msg := sse.Message{
		Type: messagesSSEType,
	}
	msg.AppendData(rendered)
	if err := m.sseSrv.Publish(&msg, messageIDTopic(messageID)); err != nil {
		m.logger.Error("Failed to publish message",
			slog.String("messageID", messageID),
			slog.String(errLoggerKey, err.Error()))
	}
}

func (m Main) messageView(msg models.Message) (message, error) {
	view := message{
		ID:             msg.ID,
		Role:           string(msg.Role),
		Timestamp:      msg.Timestamp,
		StreamingState: streamingState(msg),
	}

	switch msg.Role {
	case models.RoleModel:
		rendered, err := markdown.Render(msg.Text)
		if err != nil {
			return message{}, fmt.Errorf("failed to render message contents: %w", err)
		}
		// Render output is sanitized before it ever reaches a template.
		view.Content = template.HTML(rendered)
	default:
		view.Content = template.HTML(template.HTMLEscapeString(msg.Text))
	}

	return view, nil
}

func streamingState(msg models.Message) string {
	switch {
	case !msg.Streaming:
		return "ended"
	case msg.Text == "":
		return "loading"
	default:
		return "streaming"
	}
}
