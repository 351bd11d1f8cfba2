package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
)

type homePageData struct {
	Messages []message
	Document string
}

// HandleHome renders the studio page: the chat sidebar with the current conversation, the
// sandboxed preview frame, and the code editor, all seeded from the shared state.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	messages, document := m.state.snapshot()

	msgs := make([]message, len(messages))
	for i := range messages {
		view, err := m.messageView(messages[i])
		if err != nil {
			m.logger.Error("Failed to render message",
				slog.String("message", fmt.Sprintf("%+v", messages[i])),
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		msgs[i] = view
	}

	data := homePageData{
		Messages: msgs,
		Document: document,
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
