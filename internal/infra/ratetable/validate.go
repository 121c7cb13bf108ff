package ratetable

import (
	"fmt"

	"github.com/boddenberg/pj-tributario-go/internal/domain"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Validate checks the structural invariants of a table set: all five Anexos
// present, every table contiguous from 0 to ∞ with strictly increasing bounds,
// rates in [0, 1] and non-decreasing, deductions non-negative, and every
// constant within range.
func Validate(ts domain.TableSet) error {
	for _, name := range domain.AnexoNames {
		a, ok := ts.Anexos[name]
		if !ok {
			return fmt.Errorf("version %s: anexo %s missing", ts.Version, name)
		}
		if err := validateTable(a.Brackets); err != nil {
			return fmt.Errorf("version %s: anexo %s: %w", ts.Version, name, err)
		}
	}
	for name := range ts.Anexos {
		if !isAnexoName(name) {
			return fmt.Errorf("version %s: unknown anexo %q", ts.Version, name)
		}
	}
	if err := validateTable(ts.IRRF); err != nil {
		return fmt.Errorf("version %s: irrf: %w", ts.Version, err)
	}
	if err := validateTable(ts.INSS); err != nil {
		return fmt.Errorf("version %s: inss: %w", ts.Version, err)
	}
	if err := validateConstants(ts.Constants); err != nil {
		return fmt.Errorf("version %s: constants: %w", ts.Version, err)
	}
	return nil
}

func validateTable(t domain.RateTable) error {
	if len(t) == 0 {
		return fmt.Errorf("no brackets")
	}
	last := len(t) - 1
	for i, b := range t {
		n := i + 1
		if b.Aliquota.IsNegative() || b.Aliquota.GreaterThan(one) {
			return fmt.Errorf("bracket %d: rate %s outside [0, 1]", n, b.Aliquota)
		}
		if b.Deduz.IsNegative() {
			return fmt.Errorf("bracket %d: negative deduction %s", n, b.Deduz)
		}
		if i > 0 && b.Aliquota.LessThan(t[i-1].Aliquota) {
			return fmt.Errorf("bracket %d: rate %s lower than previous %s", n, b.Aliquota, t[i-1].Aliquota)
		}

		if i == last {
			if b.Max != nil {
				return fmt.Errorf("bracket %d: last bracket must be unbounded", n)
			}
			continue
		}
		if b.Max == nil {
			return fmt.Errorf("bracket %d: only the last bracket may be unbounded", n)
		}
		if lower := t.Min(i); !b.Max.GreaterThan(lower) {
			return fmt.Errorf("bracket %d: upper bound %s does not exceed lower bound %s", n, b.Max, lower)
		}
	}
	return nil
}

func validateConstants(c domain.Constants) error {
	fractions := []struct {
		name string
		v    decimal.Decimal
	}{
		{"fator_r_threshold", c.FatorRThreshold},
		{"irrf_offset_share", c.IRRFOffsetShare},
		{"iss_rate_default", c.ISSRateDefault},
		{"inss_patronal_rate_default", c.INSSPatronalRateDefault},
		{"presumption_percent_irpj", c.PresumptionPercentIRPJ},
		{"presumption_percent_csll", c.PresumptionPercentCSLL},
		{"irpj_rate", c.IRPJRate},
		{"irpj_additional_rate", c.IRPJAdditionalRate},
		{"csll_rate", c.CSLLRate},
		{"pis_rate", c.PISRate},
		{"cofins_rate", c.COFINSRate},
	}
	for _, f := range fractions {
		if f.v.IsNegative() || f.v.GreaterThan(one) {
			return fmt.Errorf("%s %s outside [0, 1]", f.name, f.v)
		}
	}
	if !c.FatorRThreshold.IsPositive() {
		return fmt.Errorf("fator_r_threshold must be positive")
	}
	if !c.INSSCeiling.IsPositive() {
		return fmt.Errorf("inss_ceiling must be positive")
	}
	if c.IRRFDependentDeduction.IsNegative() {
		return fmt.Errorf("irrf_dependent_deduction must not be negative")
	}
	if c.IRPJAdditionalThresholdMonthly.IsNegative() {
		return fmt.Errorf("irpj_additional_threshold_monthly must not be negative")
	}
	return nil
}

func isAnexoName(name string) bool {
	for _, n := range domain.AnexoNames {
		if n == name {
			return true
		}
	}
	return false
}
