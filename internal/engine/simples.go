package engine

import (
	"fmt"

	"github.com/boddenberg/pj-tributario-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Anexos the Fator R rule chooses between.
const (
	AnexoFatorR    = "III"
	AnexoSemFatorR = "V"
)

// ComputeAnexo computes the Simples Nacional tax under one Anexo. The bracket
// is chosen on the trailing-12-month revenue; the resulting effective rate is
// applied to the monthly revenue. tax_annual is tax_monthly*12 exactly.
func ComputeAnexo(anexo domain.AnexoTable, monthlyRevenue, annualRevenue decimal.Decimal) (domain.AnexoResult, error) {
	if monthlyRevenue.IsNegative() {
		return domain.AnexoResult{}, &domain.ErrDomain{Field: "monthly_revenue", Message: "must be greater than or equal to zero"}
	}
	ev, err := Apply(anexo.Brackets, annualRevenue)
	if err != nil {
		return domain.AnexoResult{}, fmt.Errorf("anexo %s: %w", anexo.Name, err)
	}

	// tax*monthly/annual keeps full precision before the single rounding.
	taxMonthly := round2(ratio(ev.Tax.Mul(monthlyRevenue), annualRevenue))

	return domain.AnexoResult{
		Anexo:         anexo.Name,
		Faixa:         ev.BracketIndex + 1,
		Aliquota:      ev.Rate,
		Deduz:         ev.Deduction,
		EffectiveRate: roundRate(ev.EffectiveRate),
		TaxMonthly:    taxMonthly,
		TaxAnnual:     taxMonthly.Mul(twelve),
	}, nil
}

// ComputeAll computes every Anexo in the set for the same revenue. The map is
// informational: no activity eligibility is checked.
func ComputeAll(ts domain.TableSet, monthlyRevenue, annualRevenue decimal.Decimal) (map[string]domain.AnexoResult, error) {
	out := make(map[string]domain.AnexoResult, len(ts.Anexos))
	for _, name := range domain.AnexoNames {
		anexo, ok := ts.Anexo(name)
		if !ok {
			continue
		}
		r, err := ComputeAnexo(anexo, monthlyRevenue, annualRevenue)
		if err != nil {
			return nil, err
		}
		out[name] = r
	}
	return out, nil
}

// EffectiveRate evaluates an Anexo for display. Unlike ComputeAnexo, a zero
// revenue is rejected since there is no rate to show.
func EffectiveRate(anexo domain.AnexoTable, annualRevenue decimal.Decimal) (Evaluation, error) {
	if !annualRevenue.IsPositive() {
		return Evaluation{}, &domain.ErrDomain{
			Field:   "annual_revenue",
			Message: "must be greater than zero to display an effective rate",
		}
	}
	return Apply(anexo.Brackets, annualRevenue)
}

// FactorR is payroll/revenue, zero when revenue is zero.
func FactorR(annualPayroll, annualRevenue decimal.Decimal) decimal.Decimal {
	return ratio(annualPayroll, annualRevenue)
}

// qualifiesFatorR compares payroll against threshold*revenue so the boundary
// is exact regardless of division precision.
func qualifiesFatorR(annualPayroll, annualRevenue, threshold decimal.Decimal) bool {
	if annualRevenue.IsZero() {
		return decimal.Zero.GreaterThanOrEqual(threshold)
	}
	return annualPayroll.GreaterThanOrEqual(threshold.Mul(annualRevenue))
}

// SelectAnexo applies the Fator R rule: Anexo III when the activity is
// servicos and factor_r >= threshold (the boundary qualifies), otherwise
// Anexo V. A forced Anexo wins over the rule.
func SelectAnexo(p domain.CompanyProfile, threshold decimal.Decimal) string {
	if p.ForceAnexo != "" {
		return p.ForceAnexo
	}
	if p.Atividade == domain.ActivityServicos && qualifiesFatorR(p.AnnualPayroll, p.AnnualRevenue, threshold) {
		return AnexoFatorR
	}
	return AnexoSemFatorR
}

// DecideFatorR computes both Fator R branches (Anexo III and Anexo V) with the
// pró-labore-inclusive totals and records which one applies and why.
func DecideFatorR(ts domain.TableSet, p domain.CompanyProfile, pl domain.ProlaboreResult) (domain.SimplesScenarios, error) {
	c := ts.Constants

	anexoIII, ok := ts.Anexo(AnexoFatorR)
	if !ok {
		return domain.SimplesScenarios{}, &domain.ErrConfiguration{Reason: "anexo III missing from table set " + ts.Version}
	}
	anexoV, ok := ts.Anexo(AnexoSemFatorR)
	if !ok {
		return domain.SimplesScenarios{}, &domain.ErrConfiguration{Reason: "anexo V missing from table set " + ts.Version}
	}

	with, err := ComputeAnexo(anexoIII, p.MonthlyRevenue, p.AnnualRevenue)
	if err != nil {
		return domain.SimplesScenarios{}, err
	}
	without, err := ComputeAnexo(anexoV, p.MonthlyRevenue, p.AnnualRevenue)
	if err != nil {
		return domain.SimplesScenarios{}, err
	}

	// Truncated, never rounded up: a factor shown as 0.28 must select Anexo III.
	factor := FactorR(p.AnnualPayroll, p.AnnualRevenue)
	shown := factor.Truncate(4)
	with.FactorR = &shown
	without.FactorR = &shown

	withProlabore(&with, pl, c.IRRFOffsetShare)
	withProlabore(&without, pl, c.IRRFOffsetShare)

	chosen := SelectAnexo(p, c.FatorRThreshold)

	cheaper := domain.ScenarioWithoutFactorR
	if with.TaxAnnual.LessThan(without.TaxAnnual) {
		cheaper = domain.ScenarioWithFactorR
	}

	return domain.SimplesScenarios{
		WithFactorR:     with,
		WithoutFactorR:  without,
		Chosen:          chosen,
		DecisionReason:  decisionReason(p, chosen, factor, c.FatorRThreshold),
		CheaperScenario: cheaper,
	}, nil
}

// withProlabore attaches the totals including INSS and IRRF withheld on the
// pró-labore. The irrf50 variant counts only offsetShare of the IRRF.
func withProlabore(r *domain.AnexoResult, pl domain.ProlaboreResult, offsetShare decimal.Decimal) {
	monthly := r.TaxMonthly.Add(pl.INSS).Add(pl.IRRF)
	annual := monthly.Mul(twelve)

	monthly50 := round2(r.TaxMonthly.Add(pl.INSS).Add(pl.IRRF.Mul(offsetShare)))
	annual50 := monthly50.Mul(twelve)

	r.TotalMonthlyIncludingProlabore = &monthly
	r.TotalAnnualIncludingProlabore = &annual
	r.TotalMonthlyIncludingProlaboreIRRF50 = &monthly50
	r.TotalAnnualIncludingProlaboreIRRF50 = &annual50
}

func decisionReason(p domain.CompanyProfile, chosen string, factor, threshold decimal.Decimal) string {
	pct := factor.Mul(hundred).Truncate(2).StringFixed(2)
	limit := threshold.Mul(hundred).String()

	switch {
	case p.ForceAnexo != "":
		return fmt.Sprintf("Anexo definido por forçamento: %s. Fator R informado: %s%%.", chosen, pct)
	case p.Atividade != domain.ActivityServicos:
		return fmt.Sprintf("Atividade '%s' não se enquadra no Fator R; aplicado Anexo V (fator_r=%s%%).", p.Atividade, pct)
	case chosen == AnexoFatorR:
		return fmt.Sprintf("Escolhi Fator R (Anexo III) pois a folha é >= %s%% do faturamento (fator_r=%s%%).", limit, pct)
	default:
		return fmt.Sprintf("Não apliquei Fator R (Anexo V) pois a folha é < %s%% do faturamento (fator_r=%s%%).", limit, pct)
	}
}
