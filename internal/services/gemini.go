package services

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/vibeworks/code-studio/internal/models"
	"google.golang.org/genai"
)

// Gemini provides an implementation of the LLM interface backed by Google's Gemini API. The
// conversational context is carried explicitly: every call sends the full message history, so the
// session state lives with the caller rather than inside the SDK.
type Gemini struct {
	model        string
	systemPrompt string

	client *genai.Client
}

// NewGemini creates a new Gemini instance with the specified API key, model name, and system
// prompt. It fails if the key is missing or the client cannot be constructed, so a bad credential
// surfaces at startup rather than mid-conversation.
func NewGemini(ctx context.Context, apiKey, model, systemPrompt string) (Gemini, error) {
	if apiKey == "" {
		return Gemini{}, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return Gemini{}, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return Gemini{
		model:        model,
		systemPrompt: systemPrompt,
		client:       client,
	}, nil
}

// Chat implements the LLM interface by streaming responses from the Gemini model. It returns an
// iterator that yields response chunks as strings and potential errors, in arrival order.
func (g Gemini) Chat(ctx context.Context, messages []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents := geminiContents(messages)

		cfg := &genai.GenerateContentConfig{}
		if g.systemPrompt != "" {
			cfg.SystemInstruction = genai.NewContentFromText(g.systemPrompt, genai.RoleUser)
		}

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error sending request: %w", err))
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

// geminiContents converts the conversation into the API's content list, mapping the model role and
// skipping empty messages such as a not-yet-filled streaming placeholder.
func geminiContents(messages []models.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Text == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if msg.Role == models.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}
	return contents
}
