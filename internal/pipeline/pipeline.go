// Package pipeline runs one report generation end to end: load the uploaded
// table, validate it, partition into segments, compute metrics and rankings,
// render charts, compose the narrative and export the PDF. Each stage is a
// Step sharing one State, so stages stay testable in isolation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/byru-rnd/kasbon-analytics/internal/dataset"
	"github.com/byru-rnd/kasbon-analytics/internal/delivery"
	"github.com/byru-rnd/kasbon-analytics/internal/export"
	"github.com/byru-rnd/kasbon-analytics/internal/logger"
	"github.com/byru-rnd/kasbon-analytics/internal/metrics"
	"github.com/byru-rnd/kasbon-analytics/internal/ranking"
	"github.com/byru-rnd/kasbon-analytics/internal/render"
	"github.com/byru-rnd/kasbon-analytics/internal/report"
	"github.com/byru-rnd/kasbon-analytics/internal/segment"
)

// ReportFilename is the PDF artifact name inside each run directory.
const ReportFilename = "Laporan_Analitik_Kasbon.pdf"

// Step represents a single stage of the report run.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps. RunDir isolates
// this run's artifacts from concurrent runs.
type State struct {
	DatasetPath      string
	OriginalFilename string
	RunDir           string

	Table    *dataset.Table
	Dataset  *dataset.Dataset
	Segments []segment.Segment
	Metrics  []metrics.SegmentMetrics
	Rankings []ranking.SegmentRanking
	Charts   report.ChartRefs
	Report   *report.Report

	ReportPath string
	RemoteURI  string
}

// RendererFactory builds a chart renderer writing into the given directory.
type RendererFactory func(dir string) (render.Renderer, error)

// Pipeline wires the steps with their collaborators. The uploader is
// optional; when nil the run ends with the local artifact.
type Pipeline struct {
	outDir      string
	newRenderer RendererFactory
	uploader    delivery.Uploader
}

// New creates a pipeline writing run artifacts under outDir.
func New(outDir string, newRenderer RendererFactory, uploader delivery.Uploader) *Pipeline {
	if newRenderer == nil {
		newRenderer = func(dir string) (render.Renderer, error) {
			return render.NewPlotRenderer(dir)
		}
	}
	return &Pipeline{outDir: outDir, newRenderer: newRenderer, uploader: uploader}
}

// Run executes every step in order for one uploaded dataset. runID names the
// artifact directory; validation failures surface as-is so callers can
// distinguish fatal input errors from transient ones.
func (p *Pipeline) Run(ctx context.Context, datasetPath, originalFilename, runID string) (*State, error) {
	state := &State{
		DatasetPath:      datasetPath,
		OriginalFilename: originalFilename,
		RunDir:           filepath.Join(p.outDir, runID),
	}

	steps := []Step{
		&LoadTableStep{},
		&ValidateStep{},
		&PartitionStep{},
		&ComputeMetricsStep{},
		&RenderChartsStep{newRenderer: p.newRenderer},
		&ComposeStep{},
		&ExportStep{},
		&DeliverStep{uploader: p.uploader, runID: runID},
	}

	for _, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			return state, err
		}
	}

	return state, nil
}

// LoadTableStep reads the uploaded file into a raw table. The original
// filename's extension selects the reader.
type LoadTableStep struct{}

func (s *LoadTableStep) Execute(ctx context.Context, state *State) error {
	f, err := os.Open(state.DatasetPath)
	if err != nil {
		return fmt.Errorf("open dataset %q: %w", state.DatasetPath, err)
	}
	defer f.Close()

	name := state.OriginalFilename
	if name == "" {
		name = state.DatasetPath
	}

	table, err := dataset.LoadTable(f, name)
	if err != nil {
		return err
	}
	state.Table = table
	return nil
}

// ValidateStep resolves columns and builds the validated dataset.
type ValidateStep struct{}

func (s *ValidateStep) Execute(ctx context.Context, state *State) error {
	ds, err := dataset.Validate(state.Table)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	if ds.DroppedRows > 0 {
		log.Warn().
			Int("dropped_rows", ds.DroppedRows).
			Msg("rows rejected during validation")
	}
	if !ds.HasCategory {
		log.Warn().
			Msg("no category column detected, reporting combined view only")
	}
	state.Dataset = ds
	return nil
}

// PartitionStep splits the dataset into the combined and per-type segments.
type PartitionStep struct{}

func (s *PartitionStep) Execute(ctx context.Context, state *State) error {
	state.Segments = segment.Partition(state.Dataset)
	return nil
}

// ComputeMetricsStep computes metrics and the top-10 ranking views for
// every segment. Metrics and Rankings are parallel to Segments.
type ComputeMetricsStep struct{}

func (s *ComputeMetricsStep) Execute(ctx context.Context, state *State) error {
	state.Metrics = make([]metrics.SegmentMetrics, 0, len(state.Segments))
	state.Rankings = make([]ranking.SegmentRanking, 0, len(state.Segments))
	for _, seg := range state.Segments {
		state.Metrics = append(state.Metrics, metrics.Compute(seg))
		state.Rankings = append(state.Rankings, ranking.Rank(seg.Name, seg.Records))
	}
	return nil
}

// RenderChartsStep renders the four charts for every segment that has data.
// The report embeds only the combined segment's charts; the per-type
// artifacts land beside them in the run's charts directory. Render failures
// are logged and leave the chart reference empty; the report text still
// carries the numbers.
type RenderChartsStep struct {
	newRenderer RendererFactory
}

func (s *RenderChartsStep) Execute(ctx context.Context, state *State) error {
	renderer, err := s.newRenderer(filepath.Join(state.RunDir, "charts"))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	log := logger.FromContext(ctx)

	for i, m := range state.Metrics {
		if !m.HasData {
			continue
		}
		refs := renderSegmentCharts(renderer, log, m, state.Rankings[i], state.Dataset.HasCompany)
		if i == 0 {
			state.Charts = refs
		}
	}

	return nil
}

func renderSegmentCharts(renderer render.Renderer, log zerolog.Logger, m metrics.SegmentMetrics, rk ranking.SegmentRanking, hasCompany bool) report.ChartRefs {
	var refs report.ChartRefs

	if path, err := renderer.MonthlyTrend(m.Name, m.Months); err != nil {
		log.Warn().Err(err).Str("segment", m.Name).Msg("monthly trend chart failed")
	} else {
		refs.MonthlyTrend = path
	}

	if path, err := renderer.AdoptionTrend(m.Name, m.Months, hasCompany); err != nil {
		log.Warn().Err(err).Str("segment", m.Name).Msg("adoption trend chart failed")
	} else {
		refs.AdoptionTrend = path
	}

	if path, err := renderer.TopByAmount(m.Name, rk.ByAmount); err != nil {
		log.Warn().Err(err).Str("segment", m.Name).Msg("top-by-amount chart failed")
	} else {
		refs.TopByAmount = path
	}

	if path, err := renderer.WeekdayVolume(m.Name, m.WeekdayCounts); err != nil {
		log.Warn().Err(err).Str("segment", m.Name).Msg("weekday volume chart failed")
	} else {
		refs.WeekdayVolume = path
	}

	return refs
}

// ComposeStep assembles the report sections from the computed pieces.
type ComposeStep struct{}

func (s *ComposeStep) Execute(ctx context.Context, state *State) error {
	state.Report = report.Compose(report.Params{
		PeriodStart: state.Dataset.PeriodStart,
		PeriodEnd:   state.Dataset.PeriodEnd,
		Segments:    state.Metrics,
		Charts:      state.Charts,
	})
	return nil
}

// ExportStep writes the PDF artifact into the run directory.
type ExportStep struct{}

func (s *ExportStep) Execute(ctx context.Context, state *State) error {
	outPath := filepath.Join(state.RunDir, ReportFilename)
	if err := export.WriteReport(state.Report, outPath); err != nil {
		return err
	}
	state.ReportPath = outPath
	return nil
}

// DeliverStep uploads the finished PDF and chart artifacts when an uploader
// is configured. Upload failures are logged, not fatal.
type DeliverStep struct {
	uploader delivery.Uploader
	runID    string
}

func (s *DeliverStep) Execute(ctx context.Context, state *State) error {
	if s.uploader == nil {
		return nil
	}

	log := logger.FromContext(ctx)

	objectName := s.runID + "/" + ReportFilename
	uri, err := s.uploader.Upload(ctx, objectName, state.ReportPath)
	if err != nil {
		log.Warn().Err(err).Msg("report delivery failed")
		return nil
	}
	state.RemoteURI = uri

	charts := []string{
		state.Charts.MonthlyTrend,
		state.Charts.AdoptionTrend,
		state.Charts.TopByAmount,
		state.Charts.WeekdayVolume,
	}
	for _, chartPath := range charts {
		if chartPath == "" {
			continue
		}
		objectName := s.runID + "/charts/" + filepath.Base(chartPath)
		if _, err := s.uploader.Upload(ctx, objectName, chartPath); err != nil {
			log.Warn().Err(err).Str("chart", chartPath).Msg("chart delivery failed")
		}
	}

	return nil
}
