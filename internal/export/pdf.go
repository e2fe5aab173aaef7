package export

import (
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFont     = "Helvetica"
	pdfBodySize = 11
	lineHeight  = 6
)

// WritePDF converts markdown notes to a PDF file at outputPath. Rendering is
// line based, mirroring the docx writer: headings become bold sized lines,
// bullets and numbered items keep their markers, inline markup is stripped.
func WritePDF(title, markdown, outputPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(pdfFont, "B", 16)
	pdf.MultiCell(0, 8, tr(title), "", "L", false)
	pdf.Ln(2)

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			pdf.Ln(2)
			pdf.SetFont(pdfFont, "B", pdfHeadingSize(len(m[1])))
			pdf.MultiCell(0, lineHeight+1, tr(cleanMarkdownInline(m[2])), "", "L", false)
			continue
		}

		pdf.SetFont(pdfFont, "", pdfBodySize)

		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			pdf.MultiCell(0, lineHeight, tr("• "+cleanMarkdownInline(m[1])), "", "L", false)
			continue
		}

		pdf.MultiCell(0, lineHeight, tr(cleanMarkdownInline(trimmed)), "", "L", false)
	}

	return pdf.OutputFileAndClose(outputPath)
}

func pdfHeadingSize(level int) float64 {
	switch level {
	case 1:
		return 15
	case 2:
		return 13
	case 3:
		return 12
	default:
		return pdfBodySize
	}
}
