package pipeline

import (
	"github.com/shopspring/decimal"

	"upsse/internal/refdata"
)

// DiscountEvaluation says whether an observed amount delta is explained by
// the customer's configured per-unit discount.
type DiscountEvaluation struct {
	Expected decimal.Decimal
	Matches  bool
}

// EvaluateDiscount compares an observed invoice-vs-log amount delta with
// the configured discount for the customer/item pair. Absence of a
// configured rate means an expected discount of zero, so any delta at or
// above one currency unit is unexplained.
func EvaluateDiscount(ctx *refdata.Context, customerTaxID, itemName string, quantity, observedDelta decimal.Decimal) DiscountEvaluation {
	expected := ctx.Discount(customerTaxID, itemName).Mul(quantity).Round(0)
	diff := observedDelta.Round(0).Sub(expected).Abs()
	return DiscountEvaluation{
		Expected: expected,
		Matches:  diff.LessThan(decimal.NewFromInt(1)),
	}
}
