// Package server exposes the action router over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pario-ai/quill/pkg/action"
	"github.com/pario-ai/quill/pkg/apperr"
	"github.com/pario-ai/quill/pkg/logging"
	"github.com/pario-ai/quill/pkg/metrics"
	"github.com/pario-ai/quill/pkg/models"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Server is the quill HTTP server.
type Server struct {
	listen       string
	router       *action.Router
	logger       *zap.Logger
	maxBodyBytes int64
	mux          *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the base logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(l) }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New creates a Server that listens on listen and dispatches to router.
func New(listen string, router *action.Router, opts ...Option) *Server {
	s := &Server{
		listen:       listen,
		router:       router,
		logger:       zap.NewNop(),
		maxBodyBytes: DefaultMaxBodyBytes,
		mux:          chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.Use(chimw.RequestID)
	s.mux.Use(chimw.RealIP)
	s.mux.Use(loggingContext(s.logger))
	s.mux.Use(accessLog)
	s.mux.Use(chimw.Recoverer)

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/actions", s.handleListActions)
		r.Post("/actions", s.handleAction)
		r.Post("/actions/{action}", s.handleAction)
		r.Get("/cache/stats", s.handleAdmin(models.ActionCacheStats))
		r.Delete("/cache", s.handleAdmin(models.ActionClearCache))
	})
	s.mux.Get("/healthz", s.handleAdmin(models.ActionHealth))
	s.mux.Handle("/metrics", metrics.Handler())
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("quill listening", zap.String("addr", s.listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleAction runs POST /v1/actions and POST /v1/actions/{action}.
// The path action, when present, overrides the body's.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req models.ActionRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.writeRejected(w, r, req, http.StatusRequestEntityTooLarge, apperr.Validationf("request body too large"))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeRejected(w, r, req, http.StatusBadRequest, apperr.Validationf("invalid request body: %v", err))
			return
		}
	}
	if a := chi.URLParam(r, "action"); a != "" {
		req.Action = models.Action(a)
	}
	if req.RequestID == "" {
		req.RequestID = chimw.GetReqID(r.Context())
	}
	if req.Source == "" {
		req.Source = models.SourceAPI
	}

	resp, err := s.router.Process(r.Context(), req)
	writeJSON(w, statusFor(err), resp)
}

func (s *Server) handleAdmin(a models.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.router.Process(r.Context(), models.ActionRequest{
			Action:    a,
			RequestID: chimw.GetReqID(r.Context()),
			Source:    models.SourceAPI,
		})
		if err != nil {
			writeJSON(w, statusFor(err), resp)
			return
		}
		writeJSON(w, http.StatusOK, resp.Data)
	}
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actions": s.router.Actions()})
}

// writeRejected answers a request that never reached the router with the
// same envelope the router produces.
func (s *Server) writeRejected(w http.ResponseWriter, r *http.Request, req models.ActionRequest, code int, err error) {
	logging.FromContext(r.Context(), s.logger).Info("request rejected", zap.Error(err))
	writeJSON(w, code, models.ActionResponse{
		Error:     apperr.Message(err),
		RequestID: chimw.GetReqID(r.Context()),
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Action:    req.Action,
		},
	})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch apperr.KindOf(err) {
	case apperr.Validation, apperr.InsufficientInput, apperr.UnknownAction:
		return http.StatusBadRequest
	case apperr.NoProviderAvailable, apperr.ProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"success":false,"error":%q}`, err.Error())
	}
}
