package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/interfaces"
)

// NewLLMService creates an LLM service for the configured default provider.
// Gemini is the default; Claude is available through llm.default_provider.
func NewLLMService(config *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	switch config.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return NewClaudeService(&config.Claude, logger)
	case common.LLMProviderGemini, "":
		return NewGeminiService(&config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", config.LLM.DefaultProvider)
	}
}
