// Package layout builds the three-copy fee challan page.
//
// The page is A4 landscape split into three equal sections. Each section
// holds one panel produced by BuildPanel, a pure function of its offset,
// title and the challan data, so the bank, office and student copies can
// only differ by title and horizontal position.
package layout

import (
	"time"

	"challan-backend/internal/fees"
	"challan-backend/internal/models"
)

// OpKind is the primitive a DrawOp emits
type OpKind int

const (
	OpRect OpKind = iota
	OpLine
	OpText
	OpImage
)

func (k OpKind) String() string {
	switch k {
	case OpRect:
		return "rect"
	case OpLine:
		return "line"
	case OpText:
		return "text"
	case OpImage:
		return "image"
	}
	return "unknown"
}

// DrawOp is one absolute-coordinate drawing instruction in millimetres.
// Rect, Text and Image use the X/Y/W/H box; Line runs from X,Y to X2,Y2.
type DrawOp struct {
	Kind  OpKind
	X, Y  float64
	W, H  float64
	X2    float64
	Y2    float64
	Text  string
	Style string
	Size  float64
	Align string
	Tag   string
}

// Page geometry (mm)
const (
	PageWidth  = 297.0
	PageHeight = 210.0
	PageMargin = 5.0

	panelGutter = 2.0
	panelPad    = 3.0
	blockGap    = 1.5

	logoSize      = 16.0
	linePitch     = 5.0
	maxDigitBox   = 5.0
	bankRowHeight = 6.0
	labelRatio    = 0.35
	titleHeight   = 7.0

	infoRows      = 6
	infoRowHeight = 6.0

	// Academic, LMS, two conditional slots, Total, After Due Date
	feeRows       = 6
	feeRowHeight  = 6.0
	amountRatio   = 0.62
	noteHeight    = 12.0
	signatureFrom = 8.0
)

// SectionWidth is the width of one third of the usable page
const SectionWidth = (PageWidth - 2*PageMargin) / 3

// Titles of the three copies, left to right
var Titles = [3]string{"Bank Copy", "Office Copy", "Student Copy"}

// Data is everything a panel prints
type Data struct {
	Fee       models.FeeRecord
	Breakdown fees.Breakdown
	Bank      models.BankRecord
	School    models.SchoolInfo
	Campus    models.CampusInfo
	IssuedAt  time.Time

	// LogoAspect is the logo's width/height ratio; 0 means square.
	LogoAspect float64
}

// Plan is the full page: each panel's ops kept separately
type Plan struct {
	Offsets [3]float64
	Titles  [3]string
	Panels  [3][]DrawOp
}

// Ops returns every panel's ops in drawing order
func (p Plan) Ops() []DrawOp {
	var n int
	for _, ops := range p.Panels {
		n += len(ops)
	}
	all := make([]DrawOp, 0, n)
	for _, ops := range p.Panels {
		all = append(all, ops...)
	}
	return all
}

// Offset returns the x offset of section i
func Offset(i int) float64 {
	return PageMargin + float64(i)*SectionWidth
}

// Build lays out all three copies
func Build(d Data) Plan {
	var p Plan
	for i, title := range Titles {
		p.Offsets[i] = Offset(i)
		p.Titles[i] = title
		p.Panels[i] = BuildPanel(p.Offsets[i], title, d)
	}
	return p
}
