package services

import "github.com/vibeworks/code-studio/internal/models"

// LLMParameters contains the optional sampling knobs forwarded to providers that accept them.
// A nil field means the provider default is used.
type LLMParameters struct {
	Temperature      *float32       `yaml:"temperature,omitempty"`
	TopP             *float32       `yaml:"topP,omitempty"`
	Stop             []string       `yaml:"stop,omitempty"`
	PresencePenalty  *float32       `yaml:"presencePenalty,omitempty"`
	Seed             *int           `yaml:"seed,omitempty"`
	FrequencyPenalty *float32       `yaml:"frequencyPenalty,omitempty"`
	LogitBias        map[string]int `yaml:"logitBias,omitempty"`
}

// chatRole maps a conversation role to the wire role used by the OpenAI-compatible providers,
// which call the model side "assistant".
func chatRole(role models.Role) string {
	if role == models.RoleModel {
		return "assistant"
	}
	return string(role)
}
