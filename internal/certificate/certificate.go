// Package certificate renders donation certificates as PDF.
package certificate

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"wisdom-empire/internal/models"
)

const (
	pageWidth = 297.0 // A4 landscape, mm
	centerX   = pageWidth / 2

	// Average glyph width as a fraction of the font size in mm. Centering is
	// estimated from the string length with this; it is not exact metrics.
	charWidthRatio = 0.19

	fontFamily = "Go"
)

// Generator renders the fixed certificate layout.
type Generator struct {
	// CurrencySymbol prefixes the amount line.
	CurrencySymbol string
}

func NewGenerator() *Generator {
	return &Generator{CurrencySymbol: "$"}
}

// CenteredX returns the left edge that visually centers s on the page when
// drawn at fontSize points, using a fixed per-character width estimate.
func CenteredX(s string, fontSize float64) float64 {
	charWidth := fontSize * charWidthRatio
	return centerX - charWidth*float64(len([]rune(s)))/2
}

// Render draws the certificate for rec. The output depends only on rec, so
// rendering the same record twice yields identical bytes.
func (g *Generator) Render(rec models.DonationRecord) ([]byte, error) {
	issued := rec.CreatedAt
	if rec.CompletedAt != nil {
		issued = *rec.CompletedAt
	}
	issued = issued.UTC()

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate of Appreciation", true)
	pdf.SetAuthor("Wisdom Empire", true)
	pdf.SetCreationDate(issued)
	pdf.SetModificationDate(issued)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(false)
	// UTF-8 fonts so donor names outside Latin-1 survive.
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", goitalic.TTF)
	pdf.AddPage()

	// Border
	pdf.SetDrawColor(150, 110, 40)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, pageWidth-20, 190, "D")
	pdf.SetLineWidth(0.5)
	pdf.Rect(15, 15, pageWidth-30, 180, "D")

	lines := []struct {
		text  string
		style string
		size  float64
		y     float64
	}{
		{"Wisdom Empire", "B", 20, 40},
		{"Certificate of Appreciation", "B", 32, 62},
		{"This certificate is gratefully presented to", "I", 14, 85},
		{rec.Name, "B", 28, 105},
		{"for their generous support as a " + rec.Tier, "", 16, 125},
		{"with a donation of " + g.CurrencySymbol + rec.Amount.StringFixed(2), "", 16, 138},
		{"Issued " + issued.Format("January 2, 2006"), "", 12, 165},
		{"Certificate no. " + rec.ID, "", 9, 185},
	}
	pdf.SetTextColor(40, 40, 40)
	for _, l := range lines {
		pdf.SetFont(fontFamily, l.style, l.size)
		pdf.Text(CenteredX(l.text, l.size), l.y, l.text)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the attachment name offered for rec's certificate.
func Filename(rec models.DonationRecord) string {
	return fmt.Sprintf("wisdom-empire-certificate-%s.pdf", rec.ID)
}

