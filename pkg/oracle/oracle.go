package oracle

import (
	"context"
	"fmt"
)

// Error wraps a transport, timeout, or parse failure from the language-model
// boundary. Free-text generation failures are fatal to a run; structured
// classification failures are substituted with defaults by the caller.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Option allows for optional parameters like Temperature or a model override.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// Oracle is the language-model boundary the workflow calls out to.
type Oracle interface {
	// Generate sends a free-text prompt and returns the response. Any failure
	// is returned as *Error and is fatal to the calling run.
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// GenerateStructured sends a prompt expecting a JSON response and
	// unmarshals it into out. Transport and parse failures both surface as
	// *Error; callers that can proceed on defaults use StructuredOrDefault.
	GenerateStructured(ctx context.Context, prompt string, out any, options ...Option) error
}

// StructuredOrDefault runs a structured classification call and substitutes
// def when the oracle fails or its response cannot be parsed. The bool
// reports whether the oracle's own answer was used.
func StructuredOrDefault[T any](ctx context.Context, o Oracle, prompt string, def T, options ...Option) (T, bool) {
	var out T
	if err := o.GenerateStructured(ctx, prompt, &out, options...); err != nil {
		return def, false
	}
	return out, true
}
