package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/byru-rnd/kasbon-analytics/internal/dataset"
	"github.com/byru-rnd/kasbon-analytics/internal/metrics"
	"github.com/byru-rnd/kasbon-analytics/internal/pipeline"
	"github.com/byru-rnd/kasbon-analytics/internal/ranking"
	"github.com/byru-rnd/kasbon-analytics/internal/render"
	"github.com/byru-rnd/kasbon-analytics/internal/segment"
)

// stubRenderer records which charts were requested without touching
// gonum/plot, so the pipeline test stays fast and headless.
type stubRenderer struct {
	dir      string
	rendered []string
	fail     bool
}

func (r *stubRenderer) chart(kind, segmentName string) (string, error) {
	if r.fail {
		return "", errors.New("render failure")
	}
	r.rendered = append(r.rendered, kind+" "+segmentName)
	return filepath.Join(r.dir, kind+"_"+segmentName+".png"), nil
}

func (r *stubRenderer) MonthlyTrend(segmentName string, _ []metrics.MonthBucket) (string, error) {
	return r.chart("trend", segmentName)
}

func (r *stubRenderer) AdoptionTrend(segmentName string, _ []metrics.MonthBucket, _ bool) (string, error) {
	return r.chart("adoption", segmentName)
}

func (r *stubRenderer) TopByAmount(segmentName string, _ []ranking.ActorAggregate) (string, error) {
	return r.chart("top", segmentName)
}

func (r *stubRenderer) WeekdayVolume(segmentName string, _ [7]int) (string, error) {
	return r.chart("weekday", segmentName)
}

type stubUploader struct {
	uri  string
	err  error
	seen []string
}

func (u *stubUploader) Upload(ctx context.Context, objectName, filePath string) (string, error) {
	u.seen = append(u.seen, objectName)
	return u.uri, u.err
}

func (u *stubUploader) Close() error { return nil }

const sampleCSV = `Tanggal Approved,Username/ ID User,Nama Karyawan,Nama Perusahaan,Total Kasbon,Jenis EWA
2024-01-05,u1,Budi,PT Maju,100000,EWA
2024-01-06,u1,Budi,PT Maju,50000,EWA
2024-02-10,u2,Sari,PT Jaya,200000,PPOB
2024-02-11,u2,Sari,PT Jaya,300000,PPOB
`

func writeUpload(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return path
}

func newStubbedPipeline(outDir string, r *stubRenderer, u *stubUploader) *pipeline.Pipeline {
	factory := func(dir string) (render.Renderer, error) {
		r.dir = dir
		return r, nil
	}
	if u == nil {
		return pipeline.New(outDir, factory, nil)
	}
	return pipeline.New(outDir, factory, u)
}

func TestRun_FullReport(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, "kasbon.csv", sampleCSV)

	r := &stubRenderer{}
	p := newStubbedPipeline(filepath.Join(dir, "reports"), r, nil)

	state, err := p.Run(context.Background(), upload, "kasbon.csv", "run-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(state.Segments) != 3 {
		t.Errorf("got %d segments, want combined + EWA + PPOB", len(state.Segments))
	}
	if state.Metrics[0].Name != segment.CombinedName {
		t.Errorf("first metrics entry = %q, want combined", state.Metrics[0].Name)
	}
	if state.Metrics[0].TotalAmount != 650000 {
		t.Errorf("combined total = %v, want 650000", state.Metrics[0].TotalAmount)
	}
	if len(state.Rankings) != len(state.Segments) {
		t.Fatalf("got %d rankings for %d segments", len(state.Rankings), len(state.Segments))
	}
	if len(state.Rankings[0].ByAmount) != 2 {
		t.Errorf("combined ranking has %d actors, want 2", len(state.Rankings[0].ByAmount))
	}

	// Four charts per segment with data.
	if len(r.rendered) != 12 {
		t.Errorf("rendered %d charts, want 12: %v", len(r.rendered), r.rendered)
	}
	if state.Charts.MonthlyTrend == "" {
		t.Error("monthly trend chart reference not recorded")
	}
	if !strings.Contains(state.Charts.MonthlyTrend, segment.CombinedName) {
		t.Errorf("report chart refs should point at the combined charts: %q", state.Charts.MonthlyTrend)
	}

	wantPath := filepath.Join(dir, "reports", "run-1", pipeline.ReportFilename)
	if state.ReportPath != wantPath {
		t.Errorf("report path = %q, want %q", state.ReportPath, wantPath)
	}
	info, err := os.Stat(state.ReportPath)
	if err != nil {
		t.Fatalf("report artifact missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("report artifact is empty")
	}
}

func TestRun_PerSegmentRankingsAndCharts(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, "kasbon.csv", sampleCSV)

	r := &stubRenderer{}
	p := newStubbedPipeline(filepath.Join(dir, "reports"), r, nil)

	state, err := p.Run(context.Background(), upload, "kasbon.csv", "run-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	byName := make(map[string]ranking.SegmentRanking)
	for _, rk := range state.Rankings {
		byName[rk.Name] = rk
	}

	ewa, ok := byName[segment.CategoryEWA]
	if !ok {
		t.Fatal("no ranking computed for the EWA segment")
	}
	if len(ewa.ByAmount) != 1 || ewa.ByAmount[0].UserID != "u1" {
		t.Errorf("EWA ranking = %+v, want only u1", ewa.ByAmount)
	}

	ppob := byName[segment.CategoryPPOB]
	if len(ppob.ByAmount) != 1 || ppob.ByAmount[0].TotalAmount != 500000 {
		t.Errorf("PPOB ranking = %+v, want u2 with 500000", ppob.ByAmount)
	}

	// Each of the three segments gets its own chart artifacts.
	for _, name := range []string{segment.CombinedName, segment.CategoryEWA, segment.CategoryPPOB} {
		if !containsEntry(r.rendered, "trend "+name) {
			t.Errorf("no monthly trend rendered for %q: %v", name, r.rendered)
		}
		if !containsEntry(r.rendered, "top "+name) {
			t.Errorf("no top-by-amount rendered for %q: %v", name, r.rendered)
		}
	}
}

func TestRun_NoCategoryRendersCombinedOnly(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, "kasbon.csv",
		"Tanggal Approved,Username/ ID User,Total Kasbon\n2024-01-05,u1,100000\n2024-01-06,u2,50000\n")

	r := &stubRenderer{}
	p := newStubbedPipeline(filepath.Join(dir, "reports"), r, nil)

	state, err := p.Run(context.Background(), upload, "kasbon.csv", "run-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(state.Rankings) != 1 {
		t.Errorf("got %d rankings, want combined only", len(state.Rankings))
	}
	if len(r.rendered) != 4 {
		t.Errorf("rendered %d charts, want 4 for the combined segment: %v", len(r.rendered), r.rendered)
	}
}

func containsEntry(entries []string, want string) bool {
	for _, e := range entries {
		if e == want {
			return true
		}
	}
	return false
}

func TestRun_SchemaErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, "bad.csv", "Kolom A,Kolom B\n1,2\n")

	p := newStubbedPipeline(filepath.Join(dir, "reports"), &stubRenderer{}, nil)

	_, err := p.Run(context.Background(), upload, "bad.csv", "run-1")
	var schemaErr *dataset.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if !dataset.IsFatal(err) {
		t.Error("schema error should be fatal")
	}
}

func TestRun_EmptyDatasetIsFatal(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, "empty.csv",
		"Tanggal Approved,Username/ ID User,Total Kasbon\nnot-a-date,u1,100\n")

	p := newStubbedPipeline(filepath.Join(dir, "reports"), &stubRenderer{}, nil)

	_, err := p.Run(context.Background(), upload, "empty.csv", "run-1")
	if !errors.Is(err, dataset.ErrEmptyDataset) {
		t.Fatalf("got %v, want ErrEmptyDataset", err)
	}
}

func TestRun_RenderFailureStillProducesReport(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, "kasbon.csv", sampleCSV)

	p := newStubbedPipeline(filepath.Join(dir, "reports"), &stubRenderer{fail: true}, nil)

	state, err := p.Run(context.Background(), upload, "kasbon.csv", "run-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state.Charts.MonthlyTrend != "" || state.Charts.TopByAmount != "" {
		t.Errorf("chart refs should be empty on render failure: %+v", state.Charts)
	}
	if _, err := os.Stat(state.ReportPath); err != nil {
		t.Fatalf("report artifact missing despite render failure: %v", err)
	}
}

func TestRun_DeliveryRecordsURI(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, "kasbon.csv", sampleCSV)

	u := &stubUploader{uri: "gs://reports-bucket/run-1/Laporan_Analitik_Kasbon.pdf"}
	p := newStubbedPipeline(filepath.Join(dir, "reports"), &stubRenderer{}, u)

	state, err := p.Run(context.Background(), upload, "kasbon.csv", "run-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state.RemoteURI != u.uri {
		t.Errorf("remote URI = %q, want %q", state.RemoteURI, u.uri)
	}
	// PDF first, then the four charts.
	if len(u.seen) != 5 || u.seen[0] != "run-1/"+pipeline.ReportFilename {
		t.Errorf("uploaded objects = %v", u.seen)
	}
	for _, obj := range u.seen[1:] {
		if !strings.HasPrefix(obj, "run-1/charts/") {
			t.Errorf("chart uploaded outside run charts prefix: %q", obj)
		}
	}
}

func TestRun_DeliveryFailureNotFatal(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, "kasbon.csv", sampleCSV)

	u := &stubUploader{err: errors.New("bucket unreachable")}
	p := newStubbedPipeline(filepath.Join(dir, "reports"), &stubRenderer{}, u)

	state, err := p.Run(context.Background(), upload, "kasbon.csv", "run-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state.RemoteURI != "" {
		t.Errorf("remote URI should stay empty on upload failure, got %q", state.RemoteURI)
	}
	if _, err := os.Stat(state.ReportPath); err != nil {
		t.Fatalf("report artifact missing despite delivery failure: %v", err)
	}
}
