package factory

import (
	"fmt"

	"github.com/newthinker/signaldesk/internal/config"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/llm"
	"github.com/newthinker/signaldesk/internal/llm/claude"
	"github.com/newthinker/signaldesk/internal/llm/ollama"
	"github.com/newthinker/signaldesk/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// returns core.ErrConfigMissing.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	case "":
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("llm.provider is not set"))
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown llm provider %q", cfg.Provider))
	}
}
