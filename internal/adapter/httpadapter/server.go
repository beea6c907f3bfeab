// Package httpadapter serves the dashboard page, the summary API, the chart
// artifacts, and the health, readiness, and metrics endpoints.
package httpadapter

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/couchcryptid/covid-dashboard/internal/render"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ImagesPrefix is the URL path the chart artifacts are served under.
const ImagesPrefix = "/static/images/"

//go:embed templates/index.html
var templateFS embed.FS

var numberPrinter = message.NewPrinter(language.English)

var pageTemplate = template.Must(
	template.New("index.html").
		Funcs(template.FuncMap{"format_number": formatNumber}).
		ParseFS(templateFS, "templates/index.html"),
)

var artifactTitles = map[string]string{
	render.TrendArtifact:       render.TrendTitle,
	render.VaccinationArtifact: render.VaccinationTitle,
	render.GeographicArtifact:  render.GeographicTitle,
}

// Dashboard is the read side the server presents.
type Dashboard interface {
	Refresh(ctx context.Context) (pipeline.View, error)
	Summary(ctx context.Context) domain.Summary
}

// Server exposes the dashboard and operational HTTP endpoints.
type Server struct {
	httpServer *http.Server
	dashboard  Dashboard
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /, /api/summary, /static/images/,
// /healthz, /readyz, and /metrics routes. imagesDir is the renderer's output
// directory.
func NewServer(addr string, dash Dashboard, imagesDir string, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// The first page request waits for the dataset download and
			// three chart renders.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		dashboard: dash,
		logger:    logger,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.Handle("GET "+ImagesPrefix, noCache(http.StripPrefix(ImagesPrefix, http.FileServer(http.Dir(imagesDir)))))
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type image struct {
	Src string
	Alt string
}

type pageData struct {
	pipeline.View
	Images []image
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.Refresh(r.Context())
	if err != nil {
		s.logger.Error("dashboard refresh failed", "error", err)
		http.Error(w, "failed to generate dashboard charts", http.StatusInternalServerError)
		return
	}

	data := pageData{View: view, Images: imagesFor(view)}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.dashboard.Summary(r.Context()))
}

// imagesFor builds image references for the page. The version query makes
// browsers refetch artifacts that were regenerated under the same name.
func imagesFor(view pipeline.View) []image {
	version := strconv.FormatInt(time.Now().UnixNano(), 36)
	images := make([]image, 0, len(view.Artifacts))
	for _, artifact := range view.Artifacts {
		images = append(images, image{
			Src: path.Join(ImagesPrefix, artifact) + "?" + url.Values{"v": {version}}.Encode(),
			Alt: artifactTitles[artifact],
		})
	}
	return images
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// formatNumber renders integers with thousands separators.
func formatNumber(v any) string {
	return numberPrinter.Sprintf("%d", v)
}
