package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pario-ai/quill/pkg/apperr"
	"github.com/pario-ai/quill/pkg/logging"
	"github.com/pario-ai/quill/pkg/metrics"
	"github.com/pario-ai/quill/pkg/models"
)

// DefaultTimeout bounds a single provider attempt.
const DefaultTimeout = 10 * time.Second

// Request is a provider-agnostic prompt request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithFallback enables or disables falling through to the next provider.
func WithFallback(enabled bool) Option {
	return func(o *Orchestrator) { o.fallback = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrNop(l) }
}

// WithTracer sets the tracer used for call and attempt spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator calls providers in order until one succeeds.
type Orchestrator struct {
	providers []Provider
	timeout   time.Duration
	fallback  bool
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator over providers, tried in the given
// order. Fallback is enabled by default.
func NewOrchestrator(providers []Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		providers: providers,
		timeout:   DefaultTimeout,
		fallback:  true,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("github.com/pario-ai/quill/pkg/provider"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Names returns provider names in chain order.
func (o *Orchestrator) Names() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// FallbackEnabled reports whether failures fall through to the next provider.
func (o *Orchestrator) FallbackEnabled() bool {
	return o.fallback
}

// Call runs the fallback chain. The first non-empty completion wins and no
// further providers are tried. Each failed attempt is logged with its class;
// only the terminal NoProviderAvailable error is returned. With fallback
// disabled the first failure is terminal. A canceled ctx stops the chain.
func (o *Orchestrator) Call(ctx context.Context, req Request) (*models.ProviderResult, error) {
	ctx, span := o.tracer.Start(ctx, "provider.chain",
		trace.WithAttributes(
			attribute.Int("provider.count", len(o.providers)),
			attribute.Bool("provider.fallback", o.fallback),
		),
	)
	defer span.End()

	logger := logging.FromContext(ctx, o.logger)

	if len(o.providers) == 0 {
		err := apperr.Wrap(apperr.NoProviderAvailable, "no providers configured", ErrNoProviders)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("no providers configured")
		return nil, err
	}

	var (
		errs    []error
		summary []string
	)
	for i, p := range o.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			summary = append(summary, "request "+string(Classify(err)))
			break
		}

		comp, err := o.attempt(ctx, p, req)
		if err == nil {
			span.SetAttributes(attribute.String("provider.name", p.Name()), attribute.Int("provider.attempts", i+1))
			span.SetStatus(codes.Ok, "")
			return &models.ProviderResult{
				Text:         strings.TrimSpace(comp.Text),
				ProviderName: p.Name(),
				Model:        comp.Model,
				Timestamp:    o.now().UTC().Format(time.RFC3339Nano),
				TokensUsed:   comp.TokensUsed,
			}, nil
		}

		class := Classify(err)
		logger.Warn("provider attempt failed",
			zap.String("provider", p.Name()),
			zap.Int("attempt", i+1),
			zap.String("error_class", string(class)),
			zap.Error(err),
		)
		errs = append(errs, apperr.Wrap(apperr.ProviderUnavailable, p.Name(), err))
		summary = append(summary, fmt.Sprintf("%s: %s", p.Name(), class))

		if !o.fallback {
			break
		}
	}

	msg := "all providers failed"
	if !o.fallback {
		msg = "provider failed"
	}
	err := apperr.Wrap(apperr.NoProviderAvailable,
		fmt.Sprintf("%s (%s)", msg, strings.Join(summary, ", ")),
		errors.Join(errs...))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Message)
	logger.Error("provider chain exhausted", zap.Strings("attempts", summary))
	return nil, err
}

type outcome struct {
	comp *Completion
	err  error
}

// attempt runs one provider call under its own deadline. The select returns
// at the deadline even if the provider ignores its context.
func (o *Orchestrator) attempt(ctx context.Context, p Provider, req Request) (*Completion, error) {
	ctx, span := o.tracer.Start(ctx, "provider.attempt",
		trace.WithAttributes(attribute.String("provider.name", p.Name())),
	)
	defer span.End()

	actx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		comp, err := p.Call(actx, req.Prompt, Params{Temperature: req.Temperature, MaxTokens: req.MaxTokens})
		done <- outcome{comp: comp, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
		if out.err == nil && (out.comp == nil || strings.TrimSpace(out.comp.Text) == "") {
			out.err = ErrEmptyCompletion
		}
	case <-actx.Done():
		if ctx.Err() != nil {
			out.err = ctx.Err()
		} else {
			out.err = fmt.Errorf("%w after %s", ErrTimeout, o.timeout)
		}
	}

	metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if out.err != nil {
		class := Classify(out.err)
		metrics.ProviderAttempts.WithLabelValues(p.Name(), string(class)).Inc()
		span.SetAttributes(attribute.String("provider.error_class", string(class)))
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
		return nil, out.err
	}

	metrics.ProviderAttempts.WithLabelValues(p.Name(), "success").Inc()
	span.SetStatus(codes.Ok, "")
	return out.comp, nil
}
