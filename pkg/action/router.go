package action

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// Handler runs one action.
type Handler interface {
	Handle(ctx context.Context, req models.ActionRequest) (any, error)
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(ctx context.Context, req models.ActionRequest) (any, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req models.ActionRequest) (any, error) {
	return f(ctx, req)
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the base logger. Each request gets a child logger with
// request_id and action fields.
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = logging.OrNop(l) }
}

// WithTracer sets the tracer for request spans.
func WithTracer(t trace.Tracer) RouterOption {
	return func(r *Router) { r.tracer = t }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

// WithRequestTimeout bounds each request end to end. Zero means no bound.
func WithRequestTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.timeout = d }
}

// Router is the single entry point for action requests.
type Router struct {
	handlers map[models.Action]Handler
	order    []models.Action
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
	timeout  time.Duration
}

// NewRouter creates a Router with every content and admin action registered
// against svc.
func NewRouter(svc *Services, opts ...RouterOption) *Router {
	r := &Router{
		handlers: make(map[models.Action]Handler),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("github.com/pario-ai/quill/pkg/action"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if svc.Logger == nil {
		svc.Logger = r.logger
	}

	for _, a := range models.ContentActions {
		r.Register(a, &contentHandler{action: a, svc: svc})
	}
	r.Register(models.ActionCacheStats, HandlerFunc(svc.cacheStats))
	r.Register(models.ActionClearCache, HandlerFunc(svc.clearCache))
	r.Register(models.ActionHealth, svc.health(r.Actions))
	return r
}

// Register adds or replaces the handler for an action.
func (r *Router) Register(a models.Action, h Handler) {
	if _, ok := r.handlers[a]; !ok {
		r.order = append(r.order, a)
	}
	r.handlers[a] = h
}

// Actions lists registered actions in registration order.
func (r *Router) Actions() []models.Action {
	out := make([]models.Action, len(r.order))
	copy(out, r.order)
	return out
}

// Handle processes req and always returns a response envelope. The
// correlation id is the caller's requestId, or a new UUID. Processing time
// covers validation, cache and provider work.
func (r *Router) Handle(ctx context.Context, req models.ActionRequest) models.ActionResponse {
	resp, _ := r.Process(ctx, req)
	return resp
}

// Process is Handle that also returns the classified error behind a failed
// response, for transports that map error kinds to their own status codes.
func (r *Router) Process(ctx context.Context, req models.ActionRequest) (models.ActionResponse, error) {
	start := r.now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	ctx = logging.WithFields(ctx, r.logger,
		zap.String("request_id", req.RequestID),
		zap.String("action", string(req.Action)),
	)
	logger := logging.FromContext(ctx, r.logger)

	ctx, span := r.tracer.Start(ctx, "action.handle",
		trace.WithAttributes(
			attribute.String("action.name", string(req.Action)),
			attribute.String("action.request_id", req.RequestID),
			attribute.String("action.source", string(req.Source)),
		),
	)
	defer span.End()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	data, err := r.dispatch(ctx, req)

	end := r.now()
	elapsed := end.Sub(start)
	resp := models.ActionResponse{
		RequestID: req.RequestID,
		Metadata: models.Metadata{
			ProcessingTimeMs: elapsed.Milliseconds(),
			Timestamp:        end.UTC().Format(time.RFC3339Nano),
			Action:           req.Action,
		},
	}

	label := string(req.Action)
	if _, ok := r.handlers[req.Action]; !ok {
		label = "unknown"
	}
	status := "ok"

	if err != nil {
		kind := apperr.KindOf(err)
		status = kind.String()
		resp.Error = apperr.Message(err)

		span.RecordError(err)
		span.SetStatus(codes.Error, resp.Error)
		switch kind {
		case apperr.Validation, apperr.InsufficientInput, apperr.UnknownAction:
			logger.Info("request rejected", zap.String("error", resp.Error))
		default:
			logger.Error("request failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		}
	} else {
		resp.Success = true
		resp.Data = data
		span.SetStatus(codes.Ok, "")
		logger.Debug("request handled", zap.Duration("elapsed", elapsed))
	}

	metrics.ActionRequests.WithLabelValues(label, status).Inc()
	metrics.ActionDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	return resp, err
}

// dispatch validates the action and runs its handler, turning panics into
// Unknown errors.
func (r *Router) dispatch(ctx context.Context, req models.ActionRequest) (data any, err error) {
	if req.Action == "" {
		return nil, apperr.Validationf("action is required")
	}
	h, ok := r.handlers[req.Action]
	if !ok {
		return nil, apperr.UnknownActionError(string(req.Action))
	}

	defer func() {
		if rec := recover(); rec != nil {
			data = nil
			err = apperr.Wrap(apperr.Unknown, "handler panic", fmt.Errorf("%v", rec))
		}
	}()
	return h.Handle(ctx, req)
}
