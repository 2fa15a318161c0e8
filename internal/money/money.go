// Package money holds the pure ETB arithmetic used by the payments core.
// All amounts are 2-decimal ETB values rounded half up, matching what the
// payment provider and the tax authority expect on invoices.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Round2 rounds to 2 decimal places, halves away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// GrossTopUpPrice computes the customer-facing total of a coin package so the
// platform nets targetNet after VAT and gateway fees:
//
//	base  = targetNet
//	vat   = round2(base * vatRate)
//	total = round2((base + vat + gwFixed) / (1 - gwRate))
//
// It fails when gwRate leaves a non-positive denominator.
func GrossTopUpPrice(targetNet, vatRate, gwRate, gwFixed decimal.Decimal) (base, vat, total decimal.Decimal, err error) {
	denom := decimal.NewFromInt(1).Sub(gwRate)
	if denom.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("gateway rate %s is too high to gross up", gwRate)
	}

	base = Round2(targetNet)
	vat = Round2(base.Mul(vatRate))
	subtotal := base.Add(vat)
	total = Round2(subtotal.Add(gwFixed).Div(denom))
	return base, vat, total, nil
}

// GiftSplit is the breakdown of a gift's fiat value between the platform
// commission, the VAT withheld on that commission, and the creator payout.
type GiftSplit struct {
	CommissionGross decimal.Decimal
	VATOnCommission decimal.Decimal
	CommissionNet   decimal.Decimal
	CreatorPayout   decimal.Decimal
}

// SplitGift splits a gift's gross fiat value. The commission applies on the
// gross value; VAT is charged on the commission and withheld from platform
// revenue, never deducted from the creator payout.
func SplitGift(value, commissionRate, vatRate decimal.Decimal) GiftSplit {
	commissionGross := Round2(value.Mul(commissionRate))
	vatOnCommission := Round2(commissionGross.Mul(vatRate))
	return GiftSplit{
		CommissionGross: commissionGross,
		VATOnCommission: vatOnCommission,
		CommissionNet:   Round2(commissionGross.Sub(vatOnCommission)),
		CreatorPayout:   Round2(value.Sub(commissionGross)),
	}
}
