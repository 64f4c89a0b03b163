// Package provider abstracts the AI completion vendor behind one capability
// interface. The engine never knows which vendor is wired in; selection
// happens once at startup from config.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks provider transport or vendor failures. Callers degrade
// the affected detector instead of failing the request.
var ErrUnavailable = errors.New("provider unavailable")

// Provider is the AI completion capability consumed by the engine.
type Provider interface {
	// Complete returns a free-form text completion for the prompt.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// CompleteStructured returns a completion expected to contain JSON. The
	// raw text still has to go through the sanitizer; no shape guarantee is
	// made here.
	CompleteStructured(ctx context.Context, system, prompt string) (string, error)

	// TranscribeImage turns a screenshot into raw conversation text.
	TranscribeImage(ctx context.Context, image []byte, mimeType string) (string, error)
}

// New selects a vendor implementation by name.
func New(vendor, apiKey, model string) (Provider, error) {
	switch vendor {
	case "anthropic":
		return NewAnthropic(apiKey, model), nil
	case "openai":
		return NewOpenAI(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", vendor)
	}
}
