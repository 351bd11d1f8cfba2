package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vibeworks/code-studio/internal/handlers"
	"github.com/vibeworks/code-studio/internal/services"
	"gopkg.in/yaml.v3"
)

// defaultSystemPrompt steers the model towards single-file HTML answers wrapped in a fenced
// ```html block, which is the wire format the code extractor depends on.
const defaultSystemPrompt = `You are an expert Frontend Engineer and UI/UX Designer.
Your goal is to help the user build web applications in a single HTML file.

RULES:
1. When the user asks to build or modify a UI, provide the FULL, COMPLETE code.
2. The code MUST be a single HTML file containing all necessary CSS (in <style>) and JavaScript (in <script>).
3. Do not use external CSS or JS files (except for CDNs for popular libraries like Tailwind, React, Three.js, etc., if requested).
4. ALWAYS wrap your code output in a markdown code block with the language tag 'html'.
   Example:
   ` + "```html" + `
   <!DOCTYPE html>
   ...
   ` + "```" + `
5. Be concise in your explanations, focusing on the code.
6. If using Tailwind, use the CDN: <script src="https://cdn.tailwindcss.com"></script>`

type llmConfig interface {
	llm(ctx context.Context, systemPrompt string, logger *slog.Logger) (handlers.LLM, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type config struct {
	Port         string    `yaml:"port"`
	LogLevel     string    `yaml:"logLevel"`
	SystemPrompt string    `yaml:"systemPrompt"`
	LLM          llmConfig `yaml:"llm"`
}

type geminiConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	MaxTokens     int    `yaml:"maxTokens"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string                 `yaml:"apiKey"`
	Parameters    services.LLMParameters `yaml:"parameters"`
}

type openRouterConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
}

// defaultConfig is used when no config file exists, so the studio runs with just a
// GEMINI_API_KEY in the environment.
func defaultConfig() config {
	return config{
		Port: "8080",
		LLM: &geminiConfig{
			BaseLLMConfig: BaseLLMConfig{
				Provider: "gemini",
				Model:    "gemini-2.5-flash",
			},
		},
	}
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port         string         `yaml:"port"`
		LogLevel     string         `yaml:"logLevel"`
		SystemPrompt string         `yaml:"systemPrompt"`
		LLM          map[string]any `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.LogLevel = rawConfig.LogLevel
	c.SystemPrompt = rawConfig.SystemPrompt

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "gemini":
		llm = &geminiConfig{}
	case "ollama":
		llm = &ollamaConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	case "openai":
		llm = &openAIConfig{}
	case "openrouter":
		llm = &openRouterConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm

	return nil
}

func (c config) systemPrompt() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return defaultSystemPrompt
}

func (c config) logLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (g geminiConfig) llm(ctx context.Context, systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	if g.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := g.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	return services.NewGemini(ctx, apiKey, g.Model, systemPrompt)
}

func (o ollamaConfig) llm(_ context.Context, systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	return services.NewOllama(host, o.Model, systemPrompt)
}

func (a anthropicConfig) llm(_ context.Context, systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	if a.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if a.MaxTokens == 0 {
		return nil, fmt.Errorf("maxTokens is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	return services.NewAnthropic(apiKey, a.Model, systemPrompt, a.MaxTokens), nil
}

func (o openAIConfig) llm(_ context.Context, systemPrompt string, logger *slog.Logger) (handlers.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	return services.NewOpenAI(apiKey, o.Model, systemPrompt, o.Parameters, logger), nil
}

func (o openRouterConfig) llm(_ context.Context, systemPrompt string, logger *slog.Logger) (handlers.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter api key is required")
	}
	return services.NewOpenRouter(apiKey, o.Model, systemPrompt, logger), nil
}
