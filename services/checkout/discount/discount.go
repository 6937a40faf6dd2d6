// Package discount decides whether a voucher applies to an amount and how much it takes off.
package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellora/marketplace/services/checkout/model"
)

var hundred = decimal.NewFromInt(100)

// Active reports whether v is enabled and now falls inside its validity window.
func Active(v *model.Voucher, now time.Time) bool {
	if v == nil || v.DisabledAt != nil {
		return false
	}

	return !now.Before(v.StartDate) && !now.After(v.EndDate)
}

// Validate reports whether v can be applied to amount at now.
func Validate(v *model.Voucher, amount int64, now time.Time) bool {
	if !Active(v, now) {
		return false
	}

	if v.MinAmount != nil && amount < *v.MinAmount {
		return false
	}

	if v.MaxAmount != nil && amount > *v.MaxAmount {
		return false
	}

	return true
}

// Calculate returns how much v takes off amount. The result never exceeds amount.
func Calculate(v *model.Voucher, amount int64) int64 {
	if v == nil || amount <= 0 {
		return 0
	}

	var result int64
	switch v.Type {
	case model.VoucherTypeFixed:
		result = v.Amount

	case model.VoucherTypePercentage:
		result = decimal.NewFromInt(v.Amount).
			Div(hundred).
			Mul(decimal.NewFromInt(amount)).
			Floor().
			IntPart()

	default:
		return 0
	}

	if result > amount {
		return amount
	}

	if result < 0 {
		return 0
	}

	return result
}
