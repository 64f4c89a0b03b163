package provider

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/parley/internal/anthropic"
)

const (
	completionMaxTokens    = 4096
	transcriptionMaxTokens = 8192

	structuredSuffix = "\n\nReturn ONLY the JSON object, no markdown fences or other text."

	transcribeInstruction = `Transcribe the conversation shown in this image into plain text.
Preserve speaker names and message order, one message per line in the form "Name: message".
Include timestamps when visible. Output only the transcript.`
)

// Anthropic adapts the Messages API client to the Provider interface.
type Anthropic struct {
	client *anthropic.Client
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{client: anthropic.NewClient(apiKey, model)}
}

// SetTestTransport points the underlying client at a test server.
func (a *Anthropic) SetTestTransport(baseURL string) {
	a.client.SetTestTransport(baseURL)
}

func (a *Anthropic) Complete(ctx context.Context, system, prompt string) (string, error) {
	text, err := a.client.Complete(ctx, system, prompt, completionMaxTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return text, nil
}

func (a *Anthropic) CompleteStructured(ctx context.Context, system, prompt string) (string, error) {
	return a.Complete(ctx, system, prompt+structuredSuffix)
}

func (a *Anthropic) TranscribeImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	text, err := a.client.CompleteWithImage(ctx, transcribeInstruction, image, mimeType, transcriptionMaxTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return text, nil
}
