// Package provider calls upstream text-generation services and runs the
// ordered fallback chain across them.
package provider

import (
	"context"
)

// Params are the sampling parameters passed to a provider.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Completion is a provider's raw answer before normalization.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider is one upstream text-generation capability.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Call must honor cancellation and deadlines.
type Provider interface {
	Name() string
	Call(ctx context.Context, prompt string, p Params) (*Completion, error)
}

// CallFunc is the minimal provider shape: prompt in, text out.
type CallFunc func(ctx context.Context, prompt string, p Params) (string, error)

// Func adapts a CallFunc into a Provider.
type Func struct {
	name string
	fn   CallFunc
}

// NewFunc creates a Provider named name backed by fn.
func NewFunc(name string, fn CallFunc) *Func {
	return &Func{name: name, fn: fn}
}

// Name implements Provider.
func (f *Func) Name() string { return f.name }

// Call implements Provider.
func (f *Func) Call(ctx context.Context, prompt string, p Params) (*Completion, error) {
	text, err := f.fn(ctx, prompt, p)
	if err != nil {
		return nil, err
	}
	return &Completion{Text: text}, nil
}
