package handlers

import (
	"context"
	"fmt"
	"html/template"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"
	codestudio "github.com/vibeworks/code-studio"
	"github.com/vibeworks/code-studio/internal/models"
)

// LLM represents a large language model interface that provides chat functionality. It accepts a context
// and a sequence of messages, returning an iterator that yields response chunks and potential errors.
type LLM interface {
	Chat(ctx context.Context, messages []models.Message) iter.Seq2[string, error]
}

// RevisionStore defines the interface for persisting document snapshots. A snapshot is taken when a
// streamed exchange that changed the document completes, and can be listed and restored later.
type RevisionStore interface {
	Revisions(ctx context.Context) ([]models.Revision, error)
	Revision(ctx context.Context, id string) (models.Revision, error)
	AddRevision(ctx context.Context, revision models.Revision) (string, error)
}

// Main handles the core functionality of the studio, managing server-sent events, HTML templates,
// and the wiring between user input, the LLM, and the shared document observed by the preview
// frame and the code editor.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	session session
	store   RevisionStore

	state *studioState

	logger *slog.Logger
}

const documentSSETopic = "document"

const errLoggerKey = "err"

// SSE event types for real-time updates.
var (
	messagesSSEType = sse.Type("messages")
	documentSSEType = sse.Type("document")
)

// NewMain creates a new Main instance with the provided LLM and RevisionStore implementations. It
// initializes the SSE server with default configurations and parses the required HTML templates
// from the embedded filesystem. Every SSE session subscribes to the document topic; sessions that
// request updates for a particular message additionally subscribe to that message's topic.
func NewMain(llm LLM, store RevisionStore, logger *slog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		codestudio.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, err
	}

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				// We start with default topics that all clients should subscribe to
				topics := []string{sse.DefaultTopic, documentSSETopic}

				// We create a message-specific topic if the client requests updates for a particular message
				messageID := s.Req.URL.Query().Get("message_id")
				if messageID != "" {
					topics = append(topics, messageIDTopic(messageID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates: tmpl,
		session:   session{llm: llm},
		store:     store,
		state:     newStudioState(),
		logger:    logger.With(slog.String("module", "handlers")),
	}, nil
}

func messageIDTopic(messageID string) string {
	return fmt.Sprintf("message-%s", messageID)
}

// HandleSSE serves the server-sent events endpoint used by the browser for message and document
// updates.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

func (m Main) publishDocument(doc string) {
	msg := sse.Message{
		Type: documentSSEType,
	}
	msg.AppendData(doc)
	if err := m.sseSrv.Publish(&msg, documentSSETopic); err != nil {
		m.logger.Error("Failed to publish document",
			slog.String(errLoggerKey, err.Error()))
	}
}

// Shutdown gracefully terminates the Main instance's SSE server. It broadcasts a close message to all
// connected clients and waits up to 5 seconds for connections to terminate. After the timeout, any
// remaining connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeChat")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
