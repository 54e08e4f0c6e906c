package interfaces

import "context"

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the interface for language model text completions.
// Implementations are best-effort and stateless: one prompt in, generated
// text out. Cloud providers (Gemini, Claude) back the daily digest
// summarization and the welcome-email intro generation.
type LLMService interface {
	// Chat generates a completion response based on the conversation
	// history. The messages slice should contain the full context in
	// chronological order.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the service is operational and can handle
	// requests (API connectivity, authentication).
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the service.
	Close() error
}
