package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"go.uber.org/zap"

	"github.com/KaramelBytes/stressdash/internal/analysis"
	"github.com/KaramelBytes/stressdash/internal/dashboard"
	"github.com/KaramelBytes/stressdash/internal/dataset"
	"github.com/KaramelBytes/stressdash/internal/loader"
	"github.com/KaramelBytes/stressdash/internal/parser"
	"github.com/KaramelBytes/stressdash/internal/source"
)

// TableSource is the part of the loader the server depends on.
type TableSource interface {
	Load(ctx context.Context) (*dataset.Table, error)
	Stats() loader.Stats
}

// Server exposes dashboard pages as JSON, Markdown or HTML over HTTP.
type Server struct {
	router *chi.Mux
	data   TableSource
	opt    dashboard.Options
	logger *zap.Logger
}

// New builds the router. A nil logger is replaced with a no-op logger.
func New(data TableSource, opt dashboard.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{router: chi.NewRouter(), data: data, opt: opt, logger: logger}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/pages", s.handleListPages)
	s.router.Get("/api/pages/{name}", s.handlePage)
	s.router.Get("/api/columns", s.handleColumns)
	s.router.Get("/api/metrics", s.handleMetrics)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	return err
}

// requestLogger logs one line per request with zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "loader": s.data.Stats()})
}

type pageInfo struct {
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	Panels []string `json:"panels"`
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	var out []pageInfo
	for _, p := range dashboard.Pages() {
		info := pageInfo{Name: p.Name, Title: p.Title}
		for _, panel := range p.PanelsFor(s.opt) {
			info.Panels = append(info.Panels, panel.ID)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := dashboard.Lookup(name); !ok {
		s.writeError(w, &dashboard.UnknownPageError{Name: name})
		return
	}
	t, err := s.data.Load(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := dashboard.Build(name, t, s.opt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.Markdown()))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(renderHTML(res.Markdown()))
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type columnsResponse struct {
	Source   string                   `json:"source"`
	Snapshot string                   `json:"snapshot"`
	Rows     int                      `json:"rows"`
	Target   string                   `json:"target,omitempty"`
	Columns  []analysis.ColumnSummary `json:"columns"`
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	t, err := s.data.Load(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	target, _ := analysis.ResolveTarget(t)
	writeJSON(w, http.StatusOK, columnsResponse{
		Source:   t.Source(),
		Snapshot: t.ID(),
		Rows:     t.Rows(),
		Target:   target,
		Columns:  analysis.Summarize(t),
	})
}

// renderHTML converts page Markdown to HTML. Dataset text is untrusted, so raw
// HTML in it is dropped and links are restricted to safe schemes.
func renderHTML(md string) []byte {
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.Safelink,
	})
	return markdown.ToHTML([]byte(md), nil, renderer)
}

type metricsResponse struct {
	Snapshot string            `json:"snapshot"`
	Metrics  *analysis.Metrics `json:"metrics"`
	Warnings []string          `json:"warnings,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	t, err := s.data.Load(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	target, ok := analysis.ResolveTarget(t)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: analysis.ErrNoTarget.Error(), Kind: "no_target"})
		return
	}
	d, err := analysis.NewDeriver(t, target, s.opt.Analysis)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Kind: "no_target"})
		return
	}
	m, warnings := d.Derive()
	writeJSON(w, http.StatusOK, metricsResponse{Snapshot: t.ID(), Metrics: m, Warnings: warnings})
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// StatusFor maps an error to an HTTP status and a short kind label.
func StatusFor(err error) (int, string) {
	var (
		unknown   *dashboard.UnknownPageError
		malformed *parser.MalformedError
	)
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound, "unknown_page"
	case source.IsUnreachable(err):
		return http.StatusBadGateway, "unreachable_source"
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity, "malformed_data"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := StatusFor(err)
	if status >= 500 {
		s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

// writeJSON encodes v before writing the header so an encoding failure is
// reported as a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b, _ = json.Marshal(errorBody{Error: err.Error(), Kind: "internal"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}
