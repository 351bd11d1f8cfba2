package handlers

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vibeworks/code-studio/internal/codeblock"
	"github.com/vibeworks/code-studio/internal/models"
)

const welcomeText = "Hello! I'm your AI Coding Assistant. Describe what you want to build, " +
	"and I'll generate the code and preview for you."

const initialDocument = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            height: 100vh;
            margin: 0;
            display: flex;
            align-items: center;
            justify-content: center;
            color: white;
            text-align: center;
        }
        .container {
            background: rgba(255, 255, 255, 0.1);
            backdrop-filter: blur(10px);
            padding: 2rem;
            border-radius: 1rem;
            box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1);
            border: 1px solid rgba(255, 255, 255, 0.2);
        }
        h1 { margin-bottom: 0.5rem; }
        p { opacity: 0.9; }
    </style>
</head>
<body>
    <div class="container">
        <h1>AI Code Studio</h1>
        <p>Ask the AI on the left to change this page!</p>
    </div>
</body>
</html>`

// studioState is the single ownership boundary for the conversation and the shared document. All
// mutation happens under one mutex, so fragment appends, editor write-backs, and revision restores
// are serialized; observers (the preview frame, the editor, the message list) are notified over SSE
// after each mutation.
type studioState struct {
	mu sync.Mutex

	messages  []models.Message
	document  string
	streaming bool
}

func newStudioState() *studioState {
	return &studioState{
		messages: []models.Message{
			{
				ID:        uuid.New().String(),
				Role:      models.RoleModel,
				Text:      welcomeText,
				Timestamp: time.Now(),
			},
		},
		document: initialDocument,
	}
}

// begin starts a new streamed exchange. It appends the user message and the streaming placeholder,
// marks the session active, and returns the placeholder along with the history to send to the
// model. It reports false while another exchange is active, in which case nothing is appended.
func (s *studioState) begin(userText string) (placeholder models.Message, history []models.Message, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streaming {
		return models.Message{}, nil, false
	}

	now := time.Now()
	um := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Text:      userText,
		Timestamp: now,
	}
	am := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleModel,
		Timestamp: now,
		Streaming: true,
	}

	s.messages = append(s.messages, um, am)
	s.streaming = true

	// The empty placeholder is not part of the context sent to the model.
	return am, slices.Clone(s.messages[:len(s.messages)-1]), true
}

// appendFragment appends one streamed fragment to the identified message and re-runs the code
// extractor over the accumulated text. It returns the accumulated text, the current document, and
// whether the document changed.
func (s *studioState) appendFragment(messageID, fragment string) (text, document string, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.messages, func(m models.Message) bool { return m.ID == messageID })
	if idx == -1 {
		return "", s.document, false
	}

	s.messages[idx].Text += fragment

	if extracted, ok := codeblock.Extract(s.messages[idx].Text); ok && extracted != s.document {
		s.document = extracted
		changed = true
	}

	return s.messages[idx].Text, s.document, changed
}

// endStream clears the streaming flag of the identified message and of the session. The flag
// transitions exactly once; the message is immutable afterwards.
func (s *studioState) endStream(messageID string) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streaming = false

	idx := slices.IndexFunc(s.messages, func(m models.Message) bool { return m.ID == messageID })
	if idx == -1 {
		return models.Message{}
	}

	s.messages[idx].Streaming = false
	return s.messages[idx]
}

// setDocument replaces the shared document. Callers decide whether to notify observers; last
// writer wins.
func (s *studioState) setDocument(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.document = doc
}

func (s *studioState) snapshot() (messages []models.Message, document string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.messages), s.document
}
