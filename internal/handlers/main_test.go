package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/vibeworks/code-studio/internal/handlers"
	"github.com/vibeworks/code-studio/internal/models"
)

type mockLLM struct {
	responses []string
	err       error
}

type mockStore struct {
	revisions []models.Revision
	err       error
}

// blockingLLM holds the stream open until release is closed, keeping the session active.
type blockingLLM struct {
	release chan struct{}
}

func (b blockingLLM) Chat(_ context.Context, _ []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		<-b.release
		yield("Done.", nil)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewMain(t *testing.T) {
	llm := &mockLLM{}
	store := &mockStore{}

	main, err := handlers.NewMain(llm, store, discardLogger())
	if err != nil {
		t.Fatalf("NewMain() error = %v", err)
	}

	if main.Shutdown(context.Background()) != nil {
		t.Error("Shutdown() should not return error")
	}
}

func TestHandleHome(t *testing.T) {
	llm := &mockLLM{}
	store := &mockStore{}

	main, err := handlers.NewMain(llm, store, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	main.HandleHome(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("HandleHome() status = %v, want %v", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	// The conversation starts with the assistant's welcome message, and the editor is seeded
	// with the initial document.
	if !strings.Contains(body, "AI Coding Assistant") {
		t.Errorf("HandleHome() body should contain the welcome message, got %v", body)
	}
	if !strings.Contains(body, "id=\"editor\"") {
		t.Errorf("HandleHome() body should contain the editor, got %v", body)
	}
	if !strings.Contains(body, "sandbox=") {
		t.Errorf("HandleHome() body should contain the sandboxed preview frame, got %v", body)
	}
}

func TestHandleGenerate(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		message    string
		wantStatus int
	}{
		{
			name:       "Invalid method",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "Empty message",
			method:     http.MethodPost,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Whitespace only message",
			method:     http.MethodPost,
			message:    "   ",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Valid submission",
			method:     http.MethodPost,
			message:    "build a page",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockLLM{responses: []string{"On it."}}
			store := &mockStore{}

			main, err := handlers.NewMain(llm, store, discardLogger())
			if err != nil {
				t.Fatal(err)
			}

			form := strings.NewReader("message=" + tt.message)
			req := httptest.NewRequest(tt.method, "/generate", form)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()

			main.HandleGenerate(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleGenerate() status = %v, want %v", w.Code, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusOK {
				body := w.Body.String()
				if !strings.Contains(body, "build a page") {
					t.Errorf("HandleGenerate() body should contain the user message, got %v", body)
				}
				if !strings.Contains(body, "data-message-id") {
					t.Errorf("HandleGenerate() body should contain the streaming placeholder, got %v", body)
				}
			}
		})
	}
}

func TestHandleGenerateRejectsWhileStreaming(t *testing.T) {
	llm := blockingLLM{release: make(chan struct{})}
	defer close(llm.release)

	main, err := handlers.NewMain(llm, &mockStore{}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	submit := func() *httptest.ResponseRecorder {
		form := strings.NewReader("message=build a page")
		req := httptest.NewRequest(http.MethodPost, "/generate", form)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		main.HandleGenerate(w, req)
		return w
	}

	if w := submit(); w.Code != http.StatusOK {
		t.Fatalf("HandleGenerate() first submission status = %v, want %v", w.Code, http.StatusOK)
	}

	// The first stream is still open, so the second submission is dropped, not queued.
	if w := submit(); w.Code != http.StatusConflict {
		t.Errorf("HandleGenerate() concurrent submission status = %v, want %v", w.Code, http.StatusConflict)
	}
}

func TestHandleDocument(t *testing.T) {
	main, err := handlers.NewMain(&mockLLM{}, &mockStore{}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPut, "/document", strings.NewReader("<html>edited</html>"))
	w := httptest.NewRecorder()
	main.HandleDocument(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("HandleDocument() PUT status = %v, want %v", w.Code, http.StatusNoContent)
	}

	req = httptest.NewRequest(http.MethodGet, "/document", nil)
	w = httptest.NewRecorder()
	main.HandleDocument(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("HandleDocument() GET status = %v, want %v", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "<html>edited</html>" {
		t.Errorf("HandleDocument() GET body = %q, want the edited document", got)
	}

	req = httptest.NewRequest(http.MethodDelete, "/document", nil)
	w = httptest.NewRecorder()
	main.HandleDocument(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("HandleDocument() DELETE status = %v, want %v", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleRevisions(t *testing.T) {
	store := &mockStore{
		revisions: []models.Revision{
			{ID: "1-a", Prompt: "build a page"},
		},
	}
	main, err := handlers.NewMain(&mockLLM{}, store, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/revisions", nil)
	w := httptest.NewRecorder()
	main.HandleRevisions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("HandleRevisions() status = %v, want %v", w.Code, http.StatusOK)
	}

	var got []models.Revision
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("HandleRevisions() body is not valid json: %v", err)
	}
	if len(got) != 1 || got[0].Prompt != "build a page" {
		t.Errorf("HandleRevisions() = %+v, want the stored revision", got)
	}
}

func TestHandleRevisionRestore(t *testing.T) {
	store := &mockStore{
		revisions: []models.Revision{
			{ID: "1-a", Prompt: "build a page", Document: "<html>restored</html>"},
		},
	}
	main, err := handlers.NewMain(&mockLLM{}, store, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{
			name:       "Missing id",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Unknown id",
			id:         "nope",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Known id",
			id:         "1-a",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := strings.NewReader("id=" + tt.id)
			req := httptest.NewRequest(http.MethodPost, "/revisions/restore", form)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()

			main.HandleRevisionRestore(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleRevisionRestore() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/document", nil)
	w := httptest.NewRecorder()
	main.HandleDocument(w, req)

	if got := w.Body.String(); got != "<html>restored</html>" {
		t.Errorf("document after restore = %q, want %q", got, "<html>restored</html>")
	}
}

func (m mockLLM) Chat(_ context.Context, _ []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if m.err != nil {
			yield("", m.err)
			return
		}
		for _, resp := range m.responses {
			if !yield(resp, nil) {
				return
			}
		}
	}
}

func (m *mockStore) Revisions(_ context.Context) ([]models.Revision, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.revisions, nil
}

func (m *mockStore) Revision(_ context.Context, id string) (models.Revision, error) {
	if m.err != nil {
		return models.Revision{}, m.err
	}
	idx := slices.IndexFunc(m.revisions, func(r models.Revision) bool { return r.ID == id })
	if idx == -1 {
		return models.Revision{}, nil
	}
	return m.revisions[idx], nil
}

func (m *mockStore) AddRevision(_ context.Context, revision models.Revision) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.revisions = append(m.revisions, revision)
	return revision.ID, nil
}
