// Package report composes the executive report from already-computed
// segment metrics. Composition is pure assembly: it formats and orders what
// the metrics and ranking engines produced, and never recomputes aggregates.
package report

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/byru-rnd/kasbon-analytics/internal/format"
	"github.com/byru-rnd/kasbon-analytics/internal/metrics"
	"github.com/byru-rnd/kasbon-analytics/internal/segment"
)

// Section is one report chapter: a title, narrative text, and an optional
// chart image reference. An empty ChartPath means text only.
type Section struct {
	Title     string
	Body      string
	ChartPath string
}

// Report is the ordered section list for one run. Built only after every
// segment's metrics are available, never emitted partially.
type Report struct {
	Sections []Section
}

// ChartRefs carries the combined segment's rendered chart artifacts. Any
// reference may be empty when rendering failed; the section text is still
// emitted without the image.
type ChartRefs struct {
	MonthlyTrend  string
	AdoptionTrend string
	TopByAmount   string
	WeekdayVolume string
}

// Params is everything the composer needs. Segments holds every computed
// segment in fixed order, combined first.
type Params struct {
	PeriodStart civil.Date
	PeriodEnd   civil.Date
	Segments    []metrics.SegmentMetrics
	Charts      ChartRefs
}

const periodLayout = "02 Jan 2006"

// Compose builds the report sections in fixed order.
func Compose(p Params) *Report {
	return &Report{Sections: []Section{
		{
			Title: "1. Ringkasan Eksekutif & Perbandingan Jenis",
			Body:  executiveSummary(p),
		},
		{
			Title:     "2. Tren Keuangan Bulanan - " + segment.CombinedName,
			ChartPath: p.Charts.MonthlyTrend,
			Body: "Grafik di atas menunjukkan perkembangan total nominal kasbon " +
				"dan jumlah transaksi per bulan untuk gabungan EWA+PPOB. " +
				"Pimpinan dapat memonitor pertumbuhan penggunaan kasbon dan " +
				"mengidentifikasi bulan dengan lonjakan signifikan.",
		},
		{
			Title:     "2.a Tren User & Company Unik per Bulan - Gabungan",
			ChartPath: p.Charts.AdoptionTrend,
			Body: "Grafik ini menunjukkan perkembangan jumlah user unik dan company unik " +
				"yang aktif menggunakan kasbon per bulan. Tren kenaikan mengindikasikan " +
				"adopsi yang semakin luas, baik dari sisi karyawan maupun perusahaan.",
		},
		{
			Title:     "3. Top 10 Karyawan Paling Boros - Gabungan",
			ChartPath: p.Charts.TopByAmount,
			Body: "Grafik di atas menunjukkan 10 karyawan dengan total " +
				"pencairan kasbon tertinggi. Informasi ini membantu manajemen " +
				"mengidentifikasi pengguna kasbon terbesar dan potensi risiko.",
		},
		{
			Title:     "4. Analisis Hari & Akhir Pekan - Gabungan",
			ChartPath: p.Charts.WeekdayVolume,
			Body:      weekendAnalysis(p.combined()),
		},
	}}
}

func (p Params) combined() metrics.SegmentMetrics {
	if len(p.Segments) == 0 {
		return metrics.SegmentMetrics{Name: segment.CombinedName}
	}
	return p.Segments[0]
}

func executiveSummary(p Params) string {
	combined := p.combined()

	lines := []string{
		fmt.Sprintf("Periode data: %s - %s.",
			p.PeriodStart.In(time.UTC).Format(periodLayout),
			p.PeriodEnd.In(time.UTC).Format(periodLayout)),
		fmt.Sprintf("Total kasbon (gabungan EWA+PPOB): %s dari %d transaksi oleh %d user unik.",
			format.Rupiah(combined.TotalAmount), combined.TxCount, combined.UniqueUsers),
		fmt.Sprintf("Rata-rata ticket size: %s | Ticket terbesar: %s.",
			format.Rupiah(combined.AvgTicket), format.Rupiah(combined.MaxTicket)),
	}

	if peak, ok := metrics.PeakMonth(combined); ok {
		lines = append(lines, fmt.Sprintf(
			"Bulan dengan pencairan tertinggi: %s sebesar %s dari %d transaksi.",
			peak.Label, format.Rupiah(peak.SumAmount), peak.TxCount))
	}

	if pct, ok := metrics.MonthOverMonthGrowth(combined); ok {
		arah := "naik"
		if pct < 0 {
			arah = "turun"
			pct = -pct
		}
		lines = append(lines, fmt.Sprintf(
			"Dibanding bulan sebelumnya, total kasbon %s %.1f%%.", arah, pct))
	}

	lines = append(lines, fmt.Sprintf(
		"Kontribusi akhir pekan (Sabtu-Minggu, gabungan): %s (%.1f%% dari nominal, %.1f%% dari jumlah transaksi).",
		format.Rupiah(combined.WeekendAmount), combined.WeekendAmountPct, combined.WeekendTxPct))

	var perJenis []string
	for _, m := range p.Segments {
		if !m.HasData {
			continue
		}
		perJenis = append(perJenis, fmt.Sprintf(
			"- %s: %s (%d trx, weekend %.1f%% nominal / %.1f%% trx)",
			m.Name, format.Rupiah(m.TotalAmount), m.TxCount, m.WeekendAmountPct, m.WeekendTxPct))
	}
	if len(perJenis) > 0 {
		lines = append(lines, "Ringkasan per jenis (Gabungan, EWA, PPOB):\n"+strings.Join(perJenis, "\n"))
	}

	return strings.Join(lines, "\n")
}

func weekendAnalysis(combined metrics.SegmentMetrics) string {
	var b strings.Builder
	b.WriteString("Volume transaksi per hari (Senin-Minggu, gabungan):\n")
	for i, name := range metrics.WeekdayNames {
		b.WriteString(fmt.Sprintf("- %s: %s transaksi\n", name, format.Int(combined.WeekdayCounts[i])))
	}
	b.WriteString(fmt.Sprintf(
		"Kontribusi akhir pekan: %s dari %s (%.1f%% dari total nominal kasbon, %s dari %s transaksi / %.1f%% dari total transaksi).",
		format.Rupiah(combined.WeekendAmount), format.Rupiah(combined.TotalAmount), combined.WeekendAmountPct,
		format.Int(combined.WeekendTxCount), format.Int(combined.TxCount), combined.WeekendTxPct))
	return b.String()
}
