// Package render is the chart-rendering collaborator: it turns computed
// series into PNG artifacts and hands back their paths. The core pipeline
// only depends on the Renderer interface; a render failure is non-fatal and
// simply leaves the report section without an image.
package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/byru-rnd/kasbon-analytics/internal/format"
	"github.com/byru-rnd/kasbon-analytics/internal/metrics"
	"github.com/byru-rnd/kasbon-analytics/internal/ranking"
)

// Renderer produces chart artifacts for one segment's series. Each call
// returns the artifact path, or an error when the chart could not be
// produced.
type Renderer interface {
	MonthlyTrend(segmentName string, months []metrics.MonthBucket) (string, error)
	AdoptionTrend(segmentName string, months []metrics.MonthBucket, hasCompany bool) (string, error)
	TopByAmount(segmentName string, top []ranking.ActorAggregate) (string, error)
	WeekdayVolume(segmentName string, counts [7]int) (string, error)
}

// PlotRenderer renders charts as PNG files under Dir using gonum/plot.
type PlotRenderer struct {
	Dir string
}

// NewPlotRenderer creates a renderer writing into dir, creating it if needed.
func NewPlotRenderer(dir string) (*PlotRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create charts dir %q: %w", dir, err)
	}
	return &PlotRenderer{Dir: dir}, nil
}

var (
	amountColor = color.RGBA{R: 0x6b, G: 0xae, B: 0xd6, A: 0xff}
	countColor  = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	rankColor   = color.RGBA{R: 0x0e, G: 0xa5, B: 0xe9, A: 0xff}
)

// MonthlyTrend draws the per-month disbursement sums as bars with the
// transaction counts as an overlaid line.
func (r *PlotRenderer) MonthlyTrend(segmentName string, months []metrics.MonthBucket) (string, error) {
	if len(months) == 0 {
		return "", fmt.Errorf("monthly trend %s: no buckets", segmentName)
	}

	p := plot.New()
	p.Title.Text = "Total Nominal Kasbon vs Jumlah Transaksi per Bulan - " + segmentName
	p.Y.Label.Text = "Total Nominal (Rp)"

	sums := make(plotter.Values, len(months))
	counts := make(plotter.XYs, len(months))
	labels := make([]string, len(months))
	for i, b := range months {
		sums[i] = b.SumAmount
		counts[i] = plotter.XY{X: float64(i), Y: float64(b.TxCount)}
		labels[i] = b.Label
	}

	bars, err := plotter.NewBarChart(sums, vg.Points(20))
	if err != nil {
		return "", fmt.Errorf("monthly trend %s: %w", segmentName, err)
	}
	bars.Color = amountColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.Legend.Add("Nominal (Rp)", bars)

	line, err := plotter.NewLine(counts)
	if err != nil {
		return "", fmt.Errorf("monthly trend %s: %w", segmentName, err)
	}
	line.Color = countColor
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("Jumlah Transaksi", line)

	p.NominalX(labels...)

	return r.save(p, 11*vg.Inch, 6*vg.Inch, fmt.Sprintf("trend_keuangan_%s.png", segmentName))
}

// AdoptionTrend draws unique users (and companies, when the source had a
// company column) per month.
func (r *PlotRenderer) AdoptionTrend(segmentName string, months []metrics.MonthBucket, hasCompany bool) (string, error) {
	if len(months) == 0 {
		return "", fmt.Errorf("adoption trend %s: no buckets", segmentName)
	}

	p := plot.New()
	p.Title.Text = "Tren User & Company Unik per Bulan - " + segmentName
	p.Y.Label.Text = "Jumlah Unik"

	users := make(plotter.XYs, len(months))
	companies := make(plotter.XYs, len(months))
	labels := make([]string, len(months))
	for i, b := range months {
		users[i] = plotter.XY{X: float64(i), Y: float64(b.UniqueUsers)}
		companies[i] = plotter.XY{X: float64(i), Y: float64(b.UniqueCompanies)}
		labels[i] = b.Label
	}

	userLine, err := plotter.NewLine(users)
	if err != nil {
		return "", fmt.Errorf("adoption trend %s: %w", segmentName, err)
	}
	userLine.Width = vg.Points(2)
	p.Add(userLine)
	p.Legend.Add("User Unik", userLine)

	if hasCompany {
		companyLine, err := plotter.NewLine(companies)
		if err != nil {
			return "", fmt.Errorf("adoption trend %s: %w", segmentName, err)
		}
		companyLine.Width = vg.Points(2)
		companyLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(companyLine)
		p.Legend.Add("Company Unik", companyLine)
	}

	p.NominalX(labels...)

	return r.save(p, 11*vg.Inch, 4*vg.Inch, fmt.Sprintf("trend_user_company_%s.png", segmentName))
}

// TopByAmount draws the top spenders as horizontal bars, biggest on top.
func (r *PlotRenderer) TopByAmount(segmentName string, top []ranking.ActorAggregate) (string, error) {
	if len(top) == 0 {
		return "", fmt.Errorf("top by amount %s: empty ranking", segmentName)
	}

	p := plot.New()
	p.Title.Text = "Top 10 Karyawan Paling Boros (Nominal) - " + segmentName
	p.X.Label.Text = "Total Nilai Pinjaman (Rp)"
	p.X.Tick.Marker = abbrevTicks{}

	// Reverse so the largest amount lands on the top row.
	values := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, actor := range top {
		j := len(top) - 1 - i
		values[j] = actor.TotalAmount
		names[j] = actor.DisplayName
	}

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return "", fmt.Errorf("top by amount %s: %w", segmentName, err)
	}
	bars.Horizontal = true
	bars.Color = rankColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)

	return r.save(p, 12*vg.Inch, 7*vg.Inch, fmt.Sprintf("top_users_%s.png", segmentName))
}

// WeekdayVolume draws transaction counts Monday..Sunday.
func (r *PlotRenderer) WeekdayVolume(segmentName string, counts [7]int) (string, error) {
	p := plot.New()
	p.Title.Text = "Volume Transaksi per Hari - " + segmentName

	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return "", fmt.Errorf("weekday volume %s: %w", segmentName, err)
	}
	bars.Color = amountColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(metrics.WeekdayNames[:]...)

	return r.save(p, 10*vg.Inch, 5*vg.Inch, fmt.Sprintf("daily_trx_%s.png", segmentName))
}

func (r *PlotRenderer) save(p *plot.Plot, w, h vg.Length, filename string) (string, error) {
	path := filepath.Join(r.Dir, filename)
	if err := p.Save(w, h, path); err != nil {
		return "", fmt.Errorf("save chart %q: %w", filename, err)
	}
	return path, nil
}

// abbrevTicks formats amount-axis ticks in the short magnitude form.
type abbrevTicks struct{}

func (abbrevTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i, t := range ticks {
		if t.Label == "" {
			continue
		}
		ticks[i].Label = format.Abbrev(t.Value)
	}
	return ticks
}

var _ Renderer = (*PlotRenderer)(nil)
