package engine

import (
	"github.com/boddenberg/pj-tributario-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ComputePresumido computes the Lucro Presumido breakdown. Overrides carried
// by the profile replace the corresponding constant and are echoed in
// rates_used. Every component is rounded to cents before it is summed, so
// total_annual equals the sum of the fields shown.
func ComputePresumido(p domain.CompanyProfile, c domain.Constants) (domain.PresumidoResult, error) {
	if p.AnnualRevenue.IsNegative() || p.MonthlyRevenue.IsNegative() ||
		p.AnnualPayroll.IsNegative() || p.ProLaboreMonthly.IsNegative() {
		return domain.PresumidoResult{}, &domain.ErrDomain{Field: "profile", Message: "monetary fields must be greater than or equal to zero"}
	}

	rates := domain.RatesUsed{
		PresumptionPercentIRPJ:         override(p.PresumptionPercent, c.PresumptionPercentIRPJ),
		IRPJRate:                       c.IRPJRate,
		IRPJAdditionalRate:             c.IRPJAdditionalRate,
		IRPJAdditionalThresholdMonthly: c.IRPJAdditionalThresholdMonthly,
		PresumptionPercentCSLL:         override(p.CSLLPresumptionPercent, c.PresumptionPercentCSLL),
		CSLLRate:                       c.CSLLRate,
		PISRate:                        override(p.PISRate, c.PISRate),
		COFINSRate:                     override(p.COFINSRate, c.COFINSRate),
		ISSRate:                        p.ISSRate,
		INSSPatronalRate:               p.INSSPatronalRate,
	}

	annual := p.AnnualRevenue

	baseIRPJ := annual.Mul(rates.PresumptionPercentIRPJ)
	irpj := round2(baseIRPJ.Mul(rates.IRPJRate))

	// (base/12 - threshold)*rate*12 == (base - 12*threshold)*rate
	excess := maxZero(baseIRPJ.Sub(rates.IRPJAdditionalThresholdMonthly.Mul(twelve)))
	adicional := round2(excess.Mul(rates.IRPJAdditionalRate))

	baseCSLL := annual.Mul(rates.PresumptionPercentCSLL)
	csll := round2(baseCSLL.Mul(rates.CSLLRate))

	pis := round2(annual.Mul(rates.PISRate))
	cofins := round2(annual.Mul(rates.COFINSRate))

	issMonthly := round2(p.MonthlyRevenue.Mul(rates.ISSRate))
	iss := issMonthly.Mul(twelve)

	patronalBase := p.AnnualPayroll.Div(twelve).Add(p.ProLaboreMonthly)
	patronalMonthly := round2(patronalBase.Mul(rates.INSSPatronalRate))
	patronalAnnual := patronalMonthly.Mul(twelve)
	rates.INSSPatronalBaseMonthly = round2(patronalBase)

	totalAnnual := irpj.Add(adicional).Add(csll).Add(pis).Add(cofins).Add(iss)
	totalWithPatronal := totalAnnual.Add(patronalAnnual)

	return domain.PresumidoResult{
		BaseIRPJ:      round2(baseIRPJ),
		IRPJ:          irpj,
		IRPJAdicional: adicional,
		BaseCSLL:      round2(baseCSLL),
		CSLL:          csll,
		PIS:           pis,
		COFINS:        cofins,
		ISS:           iss,
		ISSMonthly:    issMonthly,

		INSSPatronalBaseMonthly: rates.INSSPatronalBaseMonthly,
		INSSPatronalMonthly:     patronalMonthly,
		INSSPatronalAnnual:      patronalAnnual,

		TotalAnnual:              totalAnnual,
		TotalMonthly:             round2(totalAnnual.Div(twelve)),
		TotalAnnualWithPatronal:  totalWithPatronal,
		TotalMonthlyWithPatronal: round2(totalWithPatronal.Div(twelve)),

		RatesUsed: rates,
	}, nil
}

func override(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v != nil {
		return *v
	}
	return fallback
}
