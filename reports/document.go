package reports

import (
	"time"

	"github.com/jung-kurt/gofpdf"
)

const schoolName = "INSTITUCIÓN EDUCATIVA"

type column struct {
	text  string
	width float64
}

// document wraps a gofpdf page with the shared layout. Core fonts are
// cp1252, so every string goes through tr.
type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 8, d.tr(schoolName))
	pdf.Ln(8)
	pdf.SetDrawColor(40, 90, 145)
	pdf.SetLineWidth(0.5)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, d.tr(title))
	pdf.Ln(12)
	return d
}

func (d *document) field(label, value string) {
	d.pdf.SetFont("Arial", "", 10)
	d.pdf.Cell(45, 6, d.tr(label))
	d.pdf.SetFont("Arial", "B", 10)
	d.pdf.MultiCell(0, 6, d.tr(value), "", "L", false)
}

func (d *document) header(cols []column) {
	d.pdf.SetFont("Arial", "B", 9)
	d.pdf.SetFillColor(40, 90, 145)
	d.pdf.SetTextColor(255, 255, 255)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		d.pdf.CellFormat(c.width, 8, d.tr(c.text), "1", ln, "C", true, 0, "")
	}
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFont("Arial", "", 9)
	d.pdf.SetFillColor(240, 240, 240)
}

func (d *document) row(index int, cols []column) {
	fill := index%2 == 0
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		d.pdf.CellFormat(c.width, 7, d.tr(c.text), "1", ln, "L", fill, 0, "")
	}
}

func (d *document) note(text string) {
	d.pdf.SetFont("Arial", "I", 10)
	d.pdf.Cell(0, 10, d.tr(text))
	d.pdf.Ln(10)
}

func (d *document) footer(at time.Time) {
	d.pdf.Ln(10)
	d.pdf.SetFont("Arial", "I", 8)
	d.pdf.SetTextColor(100, 100, 100)
	d.pdf.Cell(0, 5, d.tr("Documento generado el "+at.Format("2006-01-02 15:04")))
	d.pdf.SetTextColor(0, 0, 0)
}
