package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inbox-triage-agent/internal/domain/ports/adapter"
	"inbox-triage-agent/internal/infra/retry"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.LLMAdapter = (*OllamaAdapter)(nil)

// OllamaAdapter implements adapter.LLMAdapter against a local Ollama server
// (POST /api/generate, non-streaming). Transport failures are retried with
// exponential backoff; a malformed or incomplete response body is not
// retryable and surfaces as a GatewayError.
type OllamaAdapter struct {
	base   string // e.g., http://localhost:11434
	model  string
	client *http.Client
	policy retry.Policy
	log    *zerolog.Logger
}

func NewOllamaAdapter(baseURL, model string, timeout time.Duration, maxRetries int, logger *zerolog.Logger) (*OllamaAdapter, error) {
	if baseURL == "" {
		return nil, errors.New("ollama base url empty")
	}
	if model == "" {
		model = "llama3.1"
	}
	compLog := logger.With().Str("component", "OllamaAdapter").Logger()
	return &OllamaAdapter{
		base:   strings.TrimRight(baseURL, "/"),
		model:  model,
		client: &http.Client{Timeout: timeout},
		policy: retry.Policy{MaxAttempts: maxRetries, InitialDelay: time.Second, MaxDelay: timeout},
		log:    &compLog,
	}, nil
}

func (o *OllamaAdapter) Model() string { return o.model }

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

// Generate sends the prompt and returns the raw model text from the
// "response" field.
func (o *OllamaAdapter) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
		Options: &ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return "", &GatewayError{Provider: "ollama", Err: err}
	}

	var text string
	err = retry.Do(ctx, o.policy, transportOnly, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return &GatewayError{Provider: "ollama", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			o.log.Debug().Err(err).Msg("ollama request failed")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &GatewayError{Provider: "ollama", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
		}

		var payload struct {
			Response *string `json:"response"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return &GatewayError{Provider: "ollama", Err: fmt.Errorf("invalid JSON from ollama: %w", err)}
		}
		if payload.Response == nil {
			return &GatewayError{Provider: "ollama", Err: errors.New("response field missing")}
		}
		text = *payload.Response
		return nil
	})
	if err != nil {
		var ge *GatewayError
		if errors.As(err, &ge) {
			return "", err
		}
		return "", &GatewayError{Provider: "ollama", Err: err}
	}
	return text, nil
}

// transportOnly retries request-level errors; a GatewayError means the
// server answered and answered badly, which another attempt will not fix.
func transportOnly(err error) bool {
	var ge *GatewayError
	return !errors.As(err, &ge)
}
