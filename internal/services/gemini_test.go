package services

import (
	"testing"

	"github.com/vibeworks/code-studio/internal/models"
	"google.golang.org/genai"
)

func TestGeminiContents(t *testing.T) {
	contents := geminiContents([]models.Message{
		{Role: models.RoleUser, Text: "build a page"},
		{Role: models.RoleModel, Text: "Sure."},
		{Role: models.RoleModel, Text: ""},
	})

	if len(contents) != 2 {
		t.Fatalf("geminiContents() = %d entries, want 2; empty messages must be skipped", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("contents[0].Role = %q, want %q", contents[0].Role, genai.RoleUser)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("contents[1].Role = %q, want %q", contents[1].Role, genai.RoleModel)
	}
}
