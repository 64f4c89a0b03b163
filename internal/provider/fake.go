package provider

import (
	"context"
	"sync"
)

// Fake is a scriptable in-memory provider for tests. Responses are returned
// in order; when the script runs out the last entry repeats. A nil Err on an
// entry means success.
type Fake struct {
	mu      sync.Mutex
	script  []FakeResponse
	idx     int
	Calls   []string // prompts received, in order
	ImgText string   // returned by TranscribeImage
}

type FakeResponse struct {
	Text string
	Err  error
}

func NewFake(script ...FakeResponse) *Fake {
	return &Fake{script: script}
}

func (f *Fake) next(prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, prompt)
	if len(f.script) == 0 {
		return "{}", nil
	}
	r := f.script[f.idx]
	if f.idx < len(f.script)-1 {
		f.idx++
	}
	return r.Text, r.Err
}

func (f *Fake) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.next(prompt)
}

func (f *Fake) CompleteStructured(ctx context.Context, system, prompt string) (string, error) {
	return f.Complete(ctx, system, prompt)
}

func (f *Fake) TranscribeImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.ImgText, nil
}

// CallCount returns how many completion calls the fake has served.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
