// Package engine implements the tax calculators: the progressive bracket
// evaluator, Simples Nacional with the Fator R rule, Lucro Presumido and
// the pró-labore withholding. Every function is pure over an immutable
// domain.TableSet and safe for concurrent use.
package engine

import (
	"github.com/boddenberg/pj-tributario-go/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// Evaluation is the outcome of applying a RateTable to a base.
type Evaluation struct {
	BracketIndex  int
	Rate          decimal.Decimal
	Deduction     decimal.Decimal
	Tax           decimal.Decimal
	EffectiveRate decimal.Decimal
}

// Apply finds the bracket containing base and computes
// max(0, base*rate - deduction). A base exactly on an upper bound belongs to
// the lower bracket. Amounts are not rounded.
func Apply(table domain.RateTable, base decimal.Decimal) (Evaluation, error) {
	if base.IsNegative() {
		return Evaluation{}, &domain.ErrDomain{Field: "base", Message: "must be greater than or equal to zero"}
	}
	if len(table) == 0 {
		return Evaluation{}, &domain.ErrConfiguration{Reason: "empty rate table"}
	}

	idx := locate(table, base)
	b := table[idx]

	tax := base.Mul(b.Aliquota).Sub(b.Deduz)
	if tax.IsNegative() {
		tax = decimal.Zero
	}

	return Evaluation{
		BracketIndex:  idx,
		Rate:          b.Aliquota,
		Deduction:     b.Deduz,
		Tax:           tax,
		EffectiveRate: ratio(tax, base),
	}, nil
}

func locate(table domain.RateTable, base decimal.Decimal) int {
	for i, b := range table {
		if b.Max == nil || base.LessThanOrEqual(*b.Max) {
			return i
		}
	}
	// Validated tables always end unbounded; stay on the last bracket otherwise.
	return len(table) - 1
}

// ratio returns num/den, or zero when den is zero.
func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// round2 rounds to cents, half away from zero.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// roundRate keeps rates readable in responses without affecting any decision.
func roundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(6)
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
