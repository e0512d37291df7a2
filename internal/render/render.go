package render

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	marginMM   = 20.0
	lineHeight = 6.0
	footerText = "Generated by the OCR document service"
)

// Sheet holds the fields printed on a generated document PDF.
type Sheet struct {
	Title   string
	Summary string
	Content string
	Date    string
	Author  string
}

// Render writes an A4 PDF for s to w.
func Render(w io.Writer, s Sheet) error {
	if w == nil {
		return errors.New("render: nil writer")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.SetTitle(s.Title, true)
	pdf.SetAuthor(s.Author, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 10, tr(s.Title), "", "C", false)
	pdf.Ln(5)

	metadata := [][2]string{
		{"Title:", s.Title},
		{"Created by:", s.Author},
		{"Date:", s.Date},
	}
	for _, row := range metadata {
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 139)
		pdf.CellFormat(30, lineHeight+1, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, lineHeight+1, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)

	section(pdf, tr, "Summary", s.Summary)
	if strings.TrimSpace(s.Content) != "" {
		section(pdf, tr, "Full content", s.Content)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, lineHeight, tr(footerText), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}

// RenderBytes renders s into memory.
func RenderBytes(s Sheet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, tr func(string) string, heading, body string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, tr(heading), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range strings.Split(body, "\n") {
		pdf.MultiCell(0, lineHeight, tr(strings.TrimSpace(line)), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(5)
}
