// Package export writes the composed report as a PDF document. The PDF core
// fonts only cover latin-1, so all narrative text passes through Sanitize
// before it reaches the document: unsupported characters are replaced, never
// dropped, so spacing stays intact.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/byru-rnd/kasbon-analytics/internal/report"
)

const (
	docTitle    = "Laporan Analitik Kasbon"
	docSubtitle = "Generated by Dashboard Analitik Kasbon"
	imageWidth  = 180
)

// Sanitize maps text onto the latin-1 repertoire: en/em dashes and bullets
// become "-", any other non-representable rune becomes "?".
func Sanitize(text string) string {
	replacer := strings.NewReplacer("–", "-", "—", "-", "•", "-")
	text = replacer.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r <= 0xff {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// WriteReport renders the report sections into a PDF at outPath. Chart
// references pointing at missing files are skipped; the section text is
// written regardless.
func WriteReport(rep *report.Report, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(docTitle, false)
	// The core fonts are cp1252; translate the sanitized UTF-8 text.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, tr(Sanitize(docTitle)), "", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 10, tr(Sanitize(docSubtitle)), "", 1, "C", false, 0, "")
		pdf.Line(10, 30, 200, 30)
		pdf.Ln(10)
	})
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	for _, section := range rep.Sections {
		chapterTitle(pdf, tr(Sanitize(section.Title)))
		if section.ChartPath != "" && fileExists(section.ChartPath) {
			pdf.ImageOptions(section.ChartPath, pdf.GetX(), pdf.GetY(), imageWidth, 0, true,
				fpdf.ImageOptions{ReadDpi: true}, 0, "")
			pdf.Ln(5)
		}
		chapterBody(pdf, tr(Sanitize(section.Body)))
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf %q: %w", outPath, err)
	}
	return nil
}

func chapterTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(4)
}

func chapterBody(pdf *fpdf.Fpdf, body string) {
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, body, "", "", false)
	pdf.Ln(-1)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
