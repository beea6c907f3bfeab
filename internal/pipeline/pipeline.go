// Package pipeline wires the cached observation table through the
// aggregators into chart artifacts and the summary view.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/render"
)

// TableSource provides the current observation table. A non-nil error
// wrapping domain.ErrDataUnavailable comes with a usable (empty) table.
type TableSource interface {
	Table(ctx context.Context) (domain.Table, error)
}

// ChartRenderer writes chart artifacts.
type ChartRenderer interface {
	Trend(points []domain.TrendPoint) error
	Vaccination(leaders []domain.VaccinationLeader) error
	Geographic(geo domain.GeoComparison) error
	Placeholder(artifact, title, message string) error
}

// MissingDataMessage is drawn on a chart whose required columns are absent.
const MissingDataMessage = "Data not available"

// View is what the dashboard page shows after a refresh.
type View struct {
	Summary   domain.Summary
	FetchedAt time.Time
	// Degraded is set when the dataset could not be loaded and the view
	// was built from an empty table.
	Degraded  bool
	Artifacts []string
}

// Dashboard orchestrates aggregate-then-render for each chart.
type Dashboard struct {
	source   TableSource
	renderer ChartRenderer
	logger   *slog.Logger
}

// New creates a Dashboard.
func New(source TableSource, renderer ChartRenderer, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		source:   source,
		renderer: renderer,
		logger:   logger,
	}
}

// Refresh regenerates every chart artifact and recomputes the summary. Each
// chart is rendered independently: a chart that cannot be drawn becomes a
// placeholder and does not stop the others. The returned error joins every
// artifact write failure; the View is populated either way.
func (d *Dashboard) Refresh(ctx context.Context) (View, error) {
	table, degraded := d.table(ctx)

	var errs []error
	for _, step := range []func(domain.Table) error{
		d.renderTrend,
		d.renderVaccination,
		d.renderGeographic,
	} {
		if err := step(table); err != nil {
			errs = append(errs, err)
		}
	}

	return View{
		Summary:   d.summarize(table),
		FetchedAt: table.FetchedAt,
		Degraded:  degraded,
		Artifacts: render.Artifacts,
	}, errors.Join(errs...)
}

// Summary recomputes the summary from the current table. An empty table
// yields zero counts and a "N/A" last-updated date.
func (d *Dashboard) Summary(ctx context.Context) domain.Summary {
	table, _ := d.table(ctx)
	return d.summarize(table)
}

func (d *Dashboard) table(ctx context.Context) (domain.Table, bool) {
	table, err := d.source.Table(ctx)
	if err != nil {
		d.logger.Warn("serving degraded dashboard", "error", err)
		return table, true
	}
	return table, false
}

func (d *Dashboard) summarize(table domain.Table) domain.Summary {
	summary, err := domain.Summarize(table)
	if err != nil {
		d.logger.Debug("summary computed from empty table", "error", err)
	}
	return summary
}

func (d *Dashboard) renderTrend(table domain.Table) error {
	points, err := domain.DailyTrend(table)
	if err != nil {
		return d.placeholder(render.TrendArtifact, render.TrendTitle, err)
	}
	return d.renderer.Trend(points)
}

func (d *Dashboard) renderVaccination(table domain.Table) error {
	leaders, err := domain.VaccinationLeaders(table)
	if err != nil {
		return d.placeholder(render.VaccinationArtifact, render.VaccinationTitle, err)
	}
	return d.renderer.Vaccination(leaders)
}

func (d *Dashboard) renderGeographic(table domain.Table) error {
	geo, err := domain.CompareGeography(table)
	if err != nil {
		return d.placeholder(render.GeographicArtifact, render.GeographicTitle, err)
	}
	return d.renderer.Geographic(geo)
}

func (d *Dashboard) placeholder(artifact, title string, cause error) error {
	d.logger.Warn("chart data missing, writing placeholder",
		"artifact", artifact,
		"error", cause,
	)
	return d.renderer.Placeholder(artifact, title, MissingDataMessage)
}
