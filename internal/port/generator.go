package port

import "context"

// Generator turns a prompt into prose. Generation failures are treated as
// non-fatal by callers.
type Generator interface {
	// GenerateWithSystem produces text with a system prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
