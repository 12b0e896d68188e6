// Package fees derives the payable amounts of a monthly fee record.
package fees

import (
	"fmt"
	"math"
	"strings"
	"time"

	"challan-backend/internal/apperr"
	"challan-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Breakdown is the derived view of a fee record. NetAmount is computed
// once and every printed total reads from it.
type Breakdown struct {
	Academic     decimal.Decimal
	LMS          decimal.Decimal
	Outstanding  decimal.Decimal
	Extra        decimal.Decimal
	ExtraName    string
	LateFee      decimal.Decimal
	NetAmount    decimal.Decimal
	LateFeeTotal decimal.Decimal

	IsLateFeeApplicable bool
	HasExtraFee         bool
	HasOutstanding      bool
	FineWaived          bool
}

// AfterDueAmount is what the student owes once the due date has passed.
// A waived fine means the late fee is never added.
func (b Breakdown) AfterDueAmount() decimal.Decimal {
	if b.FineWaived {
		return b.NetAmount
	}
	return b.LateFeeTotal
}

// Compute derives the breakdown for fee as of now
func Compute(fee models.FeeRecord, now time.Time) (Breakdown, error) {
	if err := validate(fee); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		Academic:    decimal.NewFromFloat(fee.Amount),
		LMS:         decimal.NewFromFloat(fee.LMSFee),
		Outstanding: decimal.NewFromFloat(fee.PreviousBalance),
		LateFee:     decimal.NewFromFloat(fee.LateFee),
		FineWaived:  fee.IsFineWavedOff,
	}

	b.IsLateFeeApplicable = now.After(fee.DueDate) && !fee.IsFineWavedOff
	b.HasOutstanding = !b.Outstanding.IsZero()

	name := strings.TrimSpace(fee.ExtraFeeName)
	if fee.ExtraFeeAmount != nil && *fee.ExtraFeeAmount != 0 && name != "" {
		b.HasExtraFee = true
		b.Extra = decimal.NewFromFloat(*fee.ExtraFeeAmount)
		b.ExtraName = name
	}

	b.NetAmount = b.Academic.Add(b.LMS).Add(b.Outstanding)
	if b.HasExtraFee {
		b.NetAmount = b.NetAmount.Add(b.Extra)
	}
	b.LateFeeTotal = b.NetAmount.Add(b.LateFee)

	return b, nil
}

func validate(fee models.FeeRecord) error {
	const op = "fees.compute"

	if !finite(fee.Amount) || fee.Amount < 0 {
		return apperr.New(apperr.InvalidFeeData, op, fmt.Sprintf("amount must be a finite non-negative number, got %v", fee.Amount))
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"lmsFee", fee.LMSFee},
		{"previousBalance", fee.PreviousBalance},
		{"lateFee", fee.LateFee},
	}
	for _, f := range fields {
		if !finite(f.value) || f.value < 0 {
			return apperr.New(apperr.InvalidFeeData, op, fmt.Sprintf("%s must be a finite non-negative number, got %v", f.name, f.value))
		}
	}

	if fee.ExtraFeeAmount != nil && !finite(*fee.ExtraFeeAmount) {
		return apperr.New(apperr.InvalidFeeData, op, "extraFeeAmount must be finite")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
