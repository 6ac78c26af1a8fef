// Package normalize cleans up free-text answers and summarizes uploaded
// documents. Two variants exist: a deterministic local Stub and a Model
// variant backed by the Anthropic API. WithFallback guarantees callers never
// observe a normalization failure.
package normalize

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/joelkehle/brd-assistant/internal/fields"
)

var ErrNormalizationFailed = errors.New("normalization failed")

type Normalizer interface {
	NormalizeAnswer(ctx context.Context, field fields.Definition, text string) (string, error)
	SummarizeDocument(ctx context.Context, text string) (string, error)
}

type Options struct {
	UseModel bool
	APIKey   string
	Model    string
	Timeout  time.Duration
}

const DefaultTimeout = 20 * time.Second

// New selects the variant once. A model variant that cannot be constructed
// (missing API key) degrades to the stub.
func New(opts Options) Normalizer {
	if !opts.UseModel {
		return Stub{}
	}
	caller, err := NewAnthropicCaller(opts.APIKey, opts.Model)
	if err != nil {
		log.Printf("model normalizer unavailable, using stub: %v", err)
		return Stub{}
	}
	return WithFallback(NewModel(caller, opts.Timeout))
}

// Fallback runs the primary normalizer and, on any error, re-runs the same
// input through the stub.
type Fallback struct {
	primary Normalizer
	stub    Stub
}

func WithFallback(primary Normalizer) Normalizer {
	if _, ok := primary.(Stub); ok {
		return primary
	}
	if f, ok := primary.(*Fallback); ok {
		return f
	}
	return &Fallback{primary: primary}
}

func (f *Fallback) NormalizeAnswer(ctx context.Context, field fields.Definition, text string) (string, error) {
	out, err := f.primary.NormalizeAnswer(ctx, field, text)
	if err == nil {
		return out, nil
	}
	log.Printf("normalizer failed, falling back to stub field=%s err=%v", field.ID, err)
	return f.stub.NormalizeAnswer(ctx, field, text)
}

func (f *Fallback) SummarizeDocument(ctx context.Context, text string) (string, error) {
	out, err := f.primary.SummarizeDocument(ctx, text)
	if err == nil {
		return out, nil
	}
	log.Printf("document summary failed, falling back to stub err=%v", err)
	return f.stub.SummarizeDocument(ctx, text)
}
