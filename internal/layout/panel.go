package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"challan-backend/internal/numfmt"
)

// Font sizes (pt)
const (
	sizeSchool = 11.0
	sizeCampus = 8.0
	sizeSmall  = 7.0
	sizeTitle  = 10.0
	sizeDigit  = 9.0
	sizeAmount = 8.0
	sizeNote   = 6.0
)

// panel accumulates the ops of one copy. It lives only for one BuildPanel call.
type panel struct {
	ops []DrawOp

	x, y, w, h     float64
	innerX, innerW float64
}

func (p *panel) rect(x, y, w, h float64, tag string) {
	p.ops = append(p.ops, DrawOp{Kind: OpRect, X: x, Y: y, W: w, H: h, Tag: tag})
}

func (p *panel) line(x1, y1, x2, y2 float64, tag string) {
	p.ops = append(p.ops, DrawOp{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2, Tag: tag})
}

func (p *panel) text(x, y, w, h float64, s, style string, size float64, align, tag string) {
	p.ops = append(p.ops, DrawOp{
		Kind: OpText, X: x, Y: y, W: w, H: h,
		Text: numfmt.Safe(s), Style: style, Size: size, Align: align, Tag: tag,
	})
}

// BuildPanel lays out one copy of the challan starting at xOffset.
func BuildPanel(xOffset float64, title string, d Data) []DrawOp {
	p := &panel{
		x: xOffset + panelGutter,
		y: PageMargin,
		w: SectionWidth - 2*panelGutter,
		h: PageHeight - 2*PageMargin,
	}
	p.innerX = p.x + panelPad
	p.innerW = p.w - 2*panelPad

	p.rect(p.x, p.y, p.w, p.h, "border")

	y := p.y + panelPad
	y = p.header(y, d)
	y = p.account(y, d.Bank.Account)
	y = p.bank(y, d)
	y = p.copyTitle(y, title)
	y = p.studentInfo(y, d)
	y = p.feeBox(y, d)
	p.note(y, d)
	p.signature()

	return p.ops
}

func (p *panel) header(y float64, d Data) float64 {
	w, h := logoSize, logoSize
	if d.LogoAspect > 1 {
		h = logoSize / d.LogoAspect
	} else if d.LogoAspect > 0 {
		w = logoSize * d.LogoAspect
	}
	p.ops = append(p.ops, DrawOp{
		Kind: OpImage,
		X:    p.innerX + (p.innerW-w)/2,
		Y:    y + (logoSize-h)/2,
		W:    w,
		H:    h,
		Tag:  "logo",
	})
	y += logoSize + blockGap

	p.text(p.innerX, y, p.innerW, linePitch, d.School.Name, "B", sizeSchool, "C", "school.name")
	y += linePitch
	p.text(p.innerX, y, p.innerW, linePitch, d.Campus.Name, "", sizeCampus, "C", "campus.name")
	y += linePitch

	// The phone slot is reserved even when empty so the blocks below never move.
	if phone := numfmt.Safe(d.School.PhoneNumber); phone != "" {
		p.text(p.innerX, y, p.innerW, linePitch, "Ph: "+phone, "", sizeSmall, "C", "school.phone")
	}
	y += linePitch

	return y + blockGap
}

// account draws one square box per digit, centered as a group.
func (p *panel) account(y float64, account string) float64 {
	digits := normalizeAccount(account)
	n := utf8.RuneCountInString(digits)
	if n == 0 {
		return y + maxDigitBox + blockGap
	}

	box := math.Min(maxDigitBox, p.innerW/float64(n))
	size := math.Max(4, sizeDigit*box/maxDigitBox)
	startX := p.innerX + (p.innerW-box*float64(n))/2
	boxY := y + (maxDigitBox-box)/2

	for i, r := range []rune(digits) {
		bx := startX + float64(i)*box
		p.rect(bx, boxY, box, box, "account.box")
		p.text(bx, boxY, box, box, string(r), "", size, "C", "account.digit")
	}

	return y + maxDigitBox + blockGap
}

func (p *panel) bank(y float64, d Data) float64 {
	rows := []struct{ label, value, tag string }{
		{"Bank Name", d.Bank.Name, "bank.name"},
		{"Title", d.Bank.Title, "bank.title"},
	}
	labelW := p.innerW * labelRatio

	for _, r := range rows {
		p.rect(p.innerX, y, p.innerW, bankRowHeight, r.tag)
		p.line(p.innerX+labelW, y, p.innerX+labelW, y+bankRowHeight, r.tag+".divider")
		p.text(p.innerX+1, y, labelW-2, bankRowHeight, r.label, "B", sizeSmall, "L", r.tag+".label")
		p.text(p.innerX+labelW+1, y, p.innerW-labelW-2, bankRowHeight, r.value, "", sizeSmall, "L", r.tag+".value")
		y += bankRowHeight
	}

	return y + blockGap
}

func (p *panel) copyTitle(y float64, title string) float64 {
	p.rect(p.innerX, y, p.innerW, titleHeight, "title.box")
	p.text(p.innerX, y, p.innerW, titleHeight, title, "B", sizeTitle, "C", "title")
	return y + titleHeight + blockGap
}

type field struct{ label, value string }

func (p *panel) studentInfo(y float64, d Data) float64 {
	fee := d.Fee
	month := fee.Month
	if month.IsZero() {
		month = fee.CreatedAt
	}
	issued := fee.CreatedAt
	if issued.IsZero() {
		issued = d.IssuedAt
	}

	rows := [infoRows][]field{
		{{"Comp No", fee.Student.CompNo}, {"Month", numfmt.Month(month)}},
		{{"Student Name", fee.Student.Name}},
		{{"Father Name", fee.Student.FatherName}},
		{{"Class", fee.Class.Name}, {"Section", fee.Class.Section}},
		{{"Issue Date", numfmt.Date(issued)}, {"Due Date", numfmt.Date(fee.DueDate)}},
		{{"Slip No", numfmt.SafeOr(fee.SlipNumber, fee.ID)}, {"Roll No", fee.Student.RollNo}},
	}

	height := infoRowHeight * infoRows
	half := p.innerW / 2
	p.rect(p.innerX, y, p.innerW, height, "info.box")

	for i, row := range rows {
		rowY := y + float64(i)*infoRowHeight
		if i > 0 {
			p.line(p.innerX, rowY, p.innerX+p.innerW, rowY, "info.row")
		}
		if len(row) == 1 {
			p.pair(p.innerX, rowY, p.innerW, infoRowHeight, row[0], "info")
			continue
		}
		p.line(p.innerX+half, rowY, p.innerX+half, rowY+infoRowHeight, "info.divider")
		p.pair(p.innerX, rowY, half, infoRowHeight, row[0], "info")
		p.pair(p.innerX+half, rowY, half, infoRowHeight, row[1], "info")
	}

	return y + height + blockGap
}

// pair prints "Label:" on the left and the value on the right of a cell
func (p *panel) pair(x, y, w, h float64, f field, tag string) {
	p.text(x+1, y, w-2, h, f.label+":", "B", sizeSmall, "L", tag+".label")
	p.text(x+1, y, w-2, h, f.value, "", sizeSmall, "R", tag+".value")
}

type feeRow struct {
	label, amount string
	style         string
	tag           string
}

// feeBox always emits feeRows slots. Missing conditional rows become
// spacers so the totals stay at the same height.
func (p *panel) feeBox(y float64, d Data) float64 {
	b := d.Breakdown

	var conditional []feeRow
	if b.HasOutstanding {
		conditional = append(conditional, feeRow{"Outstanding", numfmt.Money(b.Outstanding), "", "fee.outstanding"})
	}
	if b.HasExtraFee {
		conditional = append(conditional, feeRow{b.ExtraName, numfmt.Money(b.Extra), "", "fee.extra"})
	}
	for len(conditional) < 2 {
		conditional = append(conditional, feeRow{tag: "fee.spacer"})
	}

	afterDueStyle := ""
	if b.IsLateFeeApplicable {
		afterDueStyle = "B"
	}

	rows := make([]feeRow, 0, feeRows)
	rows = append(rows,
		feeRow{"Academic Fee", numfmt.Money(b.Academic), "", "fee.academic"},
		feeRow{"LMS Fee", numfmt.Money(b.LMS), "", "fee.lms"},
	)
	rows = append(rows, conditional...)
	rows = append(rows,
		feeRow{"Total Amount", numfmt.Money(b.NetAmount), "B", "fee.total"},
		feeRow{"After Due Date", numfmt.Money(b.AfterDueAmount()), afterDueStyle, "fee.after_due"},
	)

	height := feeRowHeight * feeRows
	labelW := p.innerW * amountRatio
	p.rect(p.innerX, y, p.innerW, height, "fee.box")
	p.line(p.innerX+labelW, y, p.innerX+labelW, y+height, "fee.divider")

	for i, r := range rows {
		rowY := y + float64(i)*feeRowHeight
		if i > 0 {
			p.line(p.innerX, rowY, p.innerX+p.innerW, rowY, "fee.row")
		}
		if r.tag == "fee.spacer" {
			p.text(p.innerX+1, rowY, p.innerW-2, feeRowHeight, "", "", sizeAmount, "L", r.tag)
			continue
		}
		p.text(p.innerX+1, rowY, labelW-2, feeRowHeight, r.label, r.style, sizeAmount, "L", r.tag+".label")
		p.text(p.innerX+labelW+1, rowY, p.innerW-labelW-2, feeRowHeight, r.amount, r.style, sizeAmount, "R", r.tag)
	}

	return y + height + blockGap
}

func (p *panel) note(y float64, d Data) {
	b := d.Breakdown
	lateFee := numfmt.Money(b.LateFee)

	first := fmt.Sprintf("A late fee of Rs. %s will be charged after the due date.", lateFee)
	if b.FineWaived {
		first = fmt.Sprintf("Late fee of Rs. %s has been waived for this challan.", lateFee)
	}
	second := "Please pay at any branch of " + numfmt.SafeOr(d.Bank.Name, "the bank") + "."

	p.rect(p.innerX, y, p.innerW, noteHeight, "note.box")
	p.text(p.innerX+1, y+1, p.innerW-2, noteHeight/2-1, first, "", sizeNote, "L", "note.line")
	p.text(p.innerX+1, y+noteHeight/2, p.innerW-2, noteHeight/2-1, second, "", sizeNote, "L", "note.line")
}

// signature is anchored to the panel bottom, not to the running cursor.
func (p *panel) signature() {
	bottom := p.y + p.h
	captionY := bottom - signatureFrom
	lineW := p.innerW / 2

	p.line(p.innerX+(p.innerW-lineW)/2, captionY, p.innerX+(p.innerW+lineW)/2, captionY, "signature.line")
	p.text(p.innerX, captionY, p.innerW, linePitch, "Signature & Stamp", "", sizeSmall, "C", "signature")
}

func normalizeAccount(account string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(account))
}
