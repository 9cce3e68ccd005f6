package adapter

import "context"

// GenerateOptions are decoding options passed to the model.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// LLMAdapter is the port for single-shot text generation against an
// inference service. Implementations retry transient transport failures
// internally; any returned error means the call ultimately failed.
type LLMAdapter interface {
	// Generate sends the prompt in non-streaming mode and returns the raw
	// model text.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Model reports the configured model name.
	Model() string
}
