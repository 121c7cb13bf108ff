package engine

import (
	"fmt"

	"github.com/boddenberg/pj-tributario-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ComputeProlabore computes the employee INSS (progressive, capped at the
// contribution ceiling) and the IRRF withheld on a monthly pró-labore. The
// IRRF base is the pró-labore net of the already rounded INSS; no dependents
// are modeled.
func ComputeProlabore(ts domain.TableSet, proLabore decimal.Decimal) (domain.ProlaboreResult, error) {
	if proLabore.IsNegative() {
		return domain.ProlaboreResult{}, &domain.ErrDomain{Field: "pro_labore_monthly", Message: "must be greater than or equal to zero"}
	}
	c := ts.Constants

	inssBase := proLabore
	if c.INSSCeiling.IsPositive() && inssBase.GreaterThan(c.INSSCeiling) {
		inssBase = c.INSSCeiling
	}
	inssEv, err := Apply(ts.INSS, inssBase)
	if err != nil {
		return domain.ProlaboreResult{}, fmt.Errorf("inss: %w", err)
	}
	inss := round2(inssEv.Tax)

	const dependents = 0
	irrfBase := maxZero(proLabore.Sub(inss).Sub(c.IRRFDependentDeduction.Mul(decimal.NewFromInt(dependents))))
	irrfEv, err := Apply(ts.IRRF, irrfBase)
	if err != nil {
		return domain.ProlaboreResult{}, fmt.Errorf("irrf: %w", err)
	}

	return domain.ProlaboreResult{
		INSS:     inss,
		IRRF:     round2(irrfEv.Tax),
		INSSBase: inssBase,
		IRRFBase: irrfBase,
	}, nil
}
