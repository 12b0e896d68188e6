package layout

import (
	"bytes"
	"fmt"
	"strings"

	"challan-backend/internal/apperr"
	"challan-backend/internal/models"
	"challan-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

const (
	fontFamily  = "Arial"
	logoImage   = "school-logo"
	minFontSize = 5.0
)

var logoOptions = gofpdf.ImageOptions{ImageType: "PNG"}

// Render validates d, lays out the three copies and draws them onto a single
// page. logo must be PNG bytes.
func Render(d Data, logo []byte) (*models.ChallanDocument, error) {
	if err := Validate(d, logo); err != nil {
		return nil, err
	}

	out, err := Draw(Build(d), logo)
	if err != nil {
		return nil, err
	}

	return &models.ChallanDocument{
		Bytes:    out,
		Filename: Filename(d.Fee),
		MimeType: models.PDFMimeType,
	}, nil
}

// Draw executes a plan on a gofpdf page and returns the PDF bytes
func Draw(plan Plan, logo []byte) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Fee Challan", true)
	pdf.SetCreator("challan-backend", true)
	pdf.SetCreationDate(timeutil.Now())
	pdf.AddPage()
	pdf.SetLineWidth(0.2)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.RegisterImageOptionsReader(logoImage, logoOptions, bytes.NewReader(logo))
	if pdf.Err() {
		return nil, apperr.Wrap(apperr.LayoutData, "layout.draw", fmt.Errorf("logo: %w", pdf.Error()))
	}

	for _, op := range plan.Ops() {
		switch op.Kind {
		case OpRect:
			pdf.Rect(op.X, op.Y, op.W, op.H, "D")
		case OpLine:
			pdf.Line(op.X, op.Y, op.X2, op.Y2)
		case OpImage:
			pdf.ImageOptions(logoImage, op.X, op.Y, op.W, op.H, false, logoOptions, 0, "")
		case OpText:
			if op.Text == "" {
				continue
			}
			drawText(pdf, op, tr(op.Text))
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("draw challan: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write challan pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// drawText shrinks the font until s fits its cell, then truncates
func drawText(pdf *gofpdf.Fpdf, op DrawOp, s string) {
	size := op.Size
	pdf.SetFont(fontFamily, op.Style, size)
	for pdf.GetStringWidth(s) > op.W && size > minFontSize {
		size -= 0.5
		pdf.SetFont(fontFamily, op.Style, size)
	}
	for pdf.GetStringWidth(s) > op.W && len(s) > 3 {
		s = strings.TrimSuffix(s, "...")
		s = s[:len(s)-1] + "..."
	}

	pdf.SetXY(op.X, op.Y)
	pdf.CellFormat(op.W, op.H, s, "", 0, op.Align, false, 0, "")
}

// Filename derives the human-readable document name from the billing month
func Filename(fee models.FeeRecord) string {
	month := fee.Month
	if month.IsZero() {
		month = fee.CreatedAt
	}
	if month.IsZero() {
		return "Fee Challan.pdf"
	}
	return "Fee Challan " + timeutil.FormatLocal(month, timeutil.BillingMonth) + ".pdf"
}
