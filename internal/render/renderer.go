// Package render turns aggregate views into PNG chart artifacts on disk.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
)

// Artifact file names, relative to the output directory.
const (
	TrendArtifact       = "trend_plot.png"
	VaccinationArtifact = "vaccination_plot.png"
	GeographicArtifact  = "geographic_plot.png"
)

// Chart titles, shared by real charts and their placeholders.
const (
	TrendTitle       = "Global COVID-19 Cases Trend"
	VaccinationTitle = "Vaccination Progress by Country"
	GeographicTitle  = "COVID-19 Cases vs GDP per Capita"
)

// Artifacts lists every artifact in page order.
var Artifacts = []string{TrendArtifact, VaccinationArtifact, GeographicArtifact}

// ErrArtifactWrite matches any failure to write an artifact to disk.
var ErrArtifactWrite = errors.New("artifact write failed")

// ArtifactWriteError reports which artifact could not be written and why.
type ArtifactWriteError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactWriteError) Error() string {
	return fmt.Sprintf("write artifact %s to %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactWriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrArtifactWrite) match.
func (e *ArtifactWriteError) Is(target error) bool { return target == ErrArtifactWrite }

// Renderer writes chart artifacts into a fixed directory, overwriting
// previous files unconditionally.
type Renderer struct {
	dir     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRenderer creates a Renderer for dir. Call EnsureOutputDir once at startup.
func NewRenderer(dir string, logger *slog.Logger, metrics *observability.Metrics) *Renderer {
	return &Renderer{dir: dir, logger: logger, metrics: metrics}
}

// Dir returns the output directory.
func (r *Renderer) Dir() string { return r.dir }

// EnsureOutputDir creates the output directory if it does not exist.
func (r *Renderer) EnsureOutputDir() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", r.dir, err)
	}
	return nil
}

// Trend writes the global daily-cases chart.
func (r *Renderer) Trend(points []domain.TrendPoint) error {
	return r.emit(TrendArtifact, TrendTitle, func(w io.Writer) error {
		return drawTrend(w, points)
	})
}

// Vaccination writes the leaderboard bar chart.
func (r *Renderer) Vaccination(leaders []domain.VaccinationLeader) error {
	return r.emit(VaccinationArtifact, VaccinationTitle, func(w io.Writer) error {
		return drawVaccination(w, leaders)
	})
}

// Geographic writes the GDP-vs-cases scatter chart.
func (r *Renderer) Geographic(geo domain.GeoComparison) error {
	return r.emit(GeographicArtifact, GeographicTitle, func(w io.Writer) error {
		return drawGeographic(w, geo)
	})
}

// Placeholder writes a titled image carrying only a message, in place of a
// chart whose data is missing or empty.
func (r *Renderer) Placeholder(artifact, title, message string) error {
	start := time.Now()
	var buf bytes.Buffer
	if err := drawPlaceholder(&buf, title, message); err != nil {
		r.record(artifact, "error", start)
		return fmt.Errorf("draw placeholder %s: %w", artifact, err)
	}
	return r.writeAndRecord(artifact, buf.Bytes(), "placeholder", start)
}

// emit renders a chart into memory and writes it. A chart that cannot be
// drawn degrades to a placeholder; only write failures are returned.
func (r *Renderer) emit(artifact, title string, draw func(io.Writer) error) error {
	start := time.Now()
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		r.logger.Warn("chart render failed, writing placeholder",
			"artifact", artifact,
			"error", err,
		)
		buf.Reset()
		if err := drawPlaceholder(&buf, title, placeholderMessage(err)); err != nil {
			r.record(artifact, "error", start)
			return fmt.Errorf("draw placeholder %s: %w", artifact, err)
		}
		return r.writeAndRecord(artifact, buf.Bytes(), "placeholder", start)
	}
	return r.writeAndRecord(artifact, buf.Bytes(), "rendered", start)
}

func (r *Renderer) writeAndRecord(artifact string, data []byte, outcome string, start time.Time) error {
	if err := r.write(artifact, data); err != nil {
		r.record(artifact, "error", start)
		return err
	}
	r.record(artifact, outcome, start)
	return nil
}

func (r *Renderer) record(artifact, outcome string, start time.Time) {
	chart := chartLabel(artifact)
	r.metrics.ChartRenders.WithLabelValues(chart, outcome).Inc()
	r.metrics.ChartRenderDuration.WithLabelValues(chart).Observe(time.Since(start).Seconds())
}

func (r *Renderer) write(artifact string, data []byte) error {
	path := filepath.Join(r.dir, artifact)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.logger.Error("artifact write failed", "artifact", artifact, "path", path, "error", err)
		return &ArtifactWriteError{Artifact: artifact, Path: path, Err: err}
	}
	return nil
}

// chartLabel derives the metrics label from an artifact name: "trend_plot.png" -> "trend".
func chartLabel(artifact string) string {
	return strings.TrimSuffix(strings.TrimSuffix(artifact, ".png"), "_plot")
}

func placeholderMessage(err error) string {
	if errors.Is(err, errNotEnoughData) {
		return "No valid data available"
	}
	return "Chart unavailable"
}
