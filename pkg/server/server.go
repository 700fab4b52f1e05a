// Package server exposes the render service over HTTP.
//
// Routes:
//
//	POST /api/content/{id}/render       render and publish a content item
//	GET  /api/content/{id}/preview      generated HTML (JSON, or raw with ?raw=1)
//	POST /api/content/{id}/render-html  rasterize an edited document
//	POST /api/render                    ad-hoc render of a posted request
//	GET  /api/canva/authorize           start the Canva OAuth flow for an org
//	GET  /api/canva/callback            finish it and store the credentials
//	GET  /api/{bucket}/*                serve stored files
//	GET  /healthz                       liveness and build info
//
// Errors are JSON bodies of the form {"error":{"code":...,"message":...}}
// with the status given by [errors.HTTPStatus].
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/siete/assetforge/pkg/buildinfo"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations/canva"
	"github.com/siete/assetforge/pkg/service"
	"github.com/siete/assetforge/pkg/session"
)

// maxBody caps request bodies; edited documents may inline images.
const maxBody = 20 << 20

// Options configure a Server.
type Options struct {
	Service *service.Service
	OAuth   *canva.OAuthClient // nil disables the Canva routes
	States  session.StateStore
	Logger  *log.Logger

	// RequestTimeout bounds each request; zero means two minutes.
	RequestTimeout time.Duration

	// CanvaClient builds API clients for the callback's profile lookup.
	CanvaClient func(token string) *canva.Client
}

type Server struct {
	svc         *service.Service
	oauth       *canva.OAuthClient
	states      session.StateStore
	logger      *log.Logger
	timeout     time.Duration
	canvaClient func(token string) *canva.Client
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		svc:         opts.Service,
		oauth:       opts.OAuth,
		states:      opts.States,
		logger:      opts.Logger,
		timeout:     opts.RequestTimeout,
		canvaClient: opts.CanvaClient,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.timeout <= 0 {
		s.timeout = 2 * time.Minute
	}
	if s.states == nil {
		s.states = session.NewMemoryStore()
	}
	if s.canvaClient == nil {
		s.canvaClient = func(token string) *canva.Client { return canva.NewClient(token, nil) }
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/render", s.renderAdhoc)
		r.Route("/content/{id}", func(r chi.Router) {
			r.Post("/render", s.renderItem)
			r.Get("/preview", s.preview)
			r.Post("/render-html", s.renderHTML)
		})
		r.Route("/canva", func(r chi.Router) {
			r.Get("/authorize", s.canvaAuthorize)
			r.Get("/callback", s.canvaCallback)
		})
		r.Get("/{bucket}/*", s.serveFile)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Get()})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type errorBody struct {
	Error struct {
		Code    errors.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, context.DeadlineExceeded) && errors.GetCode(err) == "" {
		err = errors.Wrap(errors.ErrCodeTimeout, err, "request timed out")
	}
	status := errors.HTTPStatus(err)
	var body errorBody
	body.Error.Code = errors.GetCode(err)
	switch {
	case body.Error.Code != "":
	case status == http.StatusTooManyRequests:
		body.Error.Code = errors.ErrCodeRateLimited
	default:
		body.Error.Code = errors.ErrCodeInternal
	}
	body.Error.Message = errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
