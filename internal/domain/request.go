package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Activity is the simplified business activity the Fator R rule depends on.
type Activity string

const (
	ActivityServicos Activity = "servicos"
	ActivityOutras   Activity = "outras"
)

// AsOfLayout is the date format of as_of and valid_from.
const AsOfLayout = "2006-01-02"

// ============================================================
// POST /compare request
// ============================================================

// CompareRequest is the raw body of POST /compare. Pointers distinguish an
// absent field from an explicit zero.
type CompareRequest struct {
	MonthlyRevenue   *decimal.Decimal `json:"monthly_revenue"`
	AnnualRevenue    *decimal.Decimal `json:"annual_revenue"`
	AnnualPayroll    *decimal.Decimal `json:"annual_payroll"`
	ProLaboreMonthly *decimal.Decimal `json:"pro_labore_monthly"`
	ISSRate          *decimal.Decimal `json:"iss_rate"`
	INSSPatronalRate *decimal.Decimal `json:"inss_patronal_rate"`
	Atividade        *string          `json:"atividade"`

	// Optional overrides.
	ForceAnexo             *string          `json:"force_anexo,omitempty"`
	PresumptionPercent     *decimal.Decimal `json:"presumption_percent,omitempty"`
	CSLLPresumptionPercent *decimal.Decimal `json:"csll_presumption_percent,omitempty"`
	PISRate                *decimal.Decimal `json:"pis_rate,omitempty"`
	COFINSRate             *decimal.Decimal `json:"cofins_rate,omitempty"`
	AsOf                   *string          `json:"as_of,omitempty"`
}

// ScenarioRequest is the body of POST /compare/scenarios: one base profile
// and the two pró-labore values to compare.
type ScenarioRequest struct {
	CompareRequest
	ProLaboreMonthlyA *decimal.Decimal `json:"pro_labore_monthly_a"`
	ProLaboreMonthlyB *decimal.Decimal `json:"pro_labore_monthly_b"`
}

// CompanyProfile is a validated CompareRequest.
type CompanyProfile struct {
	MonthlyRevenue   decimal.Decimal `json:"monthly_revenue"`
	AnnualRevenue    decimal.Decimal `json:"annual_revenue"`
	AnnualPayroll    decimal.Decimal `json:"annual_payroll"`
	ProLaboreMonthly decimal.Decimal `json:"pro_labore_monthly"`
	ISSRate          decimal.Decimal `json:"iss_rate"`
	INSSPatronalRate decimal.Decimal `json:"inss_patronal_rate"`
	Atividade        Activity        `json:"atividade"`

	ForceAnexo             string           `json:"force_anexo,omitempty"`
	PresumptionPercent     *decimal.Decimal `json:"presumption_percent,omitempty"`
	CSLLPresumptionPercent *decimal.Decimal `json:"csll_presumption_percent,omitempty"`
	PISRate                *decimal.Decimal `json:"pis_rate,omitempty"`
	COFINSRate             *decimal.Decimal `json:"cofins_rate,omitempty"`
	AsOf                   string           `json:"as_of,omitempty"`
}

// WithProLabore returns a copy of p with a different pró-labore.
func (p CompanyProfile) WithProLabore(v decimal.Decimal) CompanyProfile {
	p.ProLaboreMonthly = v
	return p
}

// AsOfDate parses AsOf, falling back to now when empty.
func (p CompanyProfile) AsOfDate(now time.Time) (time.Time, error) {
	if p.AsOf == "" {
		return now, nil
	}
	t, err := time.Parse(AsOfLayout, p.AsOf)
	if err != nil {
		return time.Time{}, &ErrDomain{Field: "as_of", Message: "must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

// CacheKey renders every field that influences the result. Decimal String
// drops trailing zeros, so 100 and 100.00 share a key.
func (p CompanyProfile) CacheKey() string {
	opt := func(d *decimal.Decimal) string {
		if d == nil {
			return "-"
		}
		return d.String()
	}
	return strings.Join([]string{
		p.MonthlyRevenue.String(),
		p.AnnualRevenue.String(),
		p.AnnualPayroll.String(),
		p.ProLaboreMonthly.String(),
		p.ISSRate.String(),
		p.INSSPatronalRate.String(),
		string(p.Atividade),
		p.ForceAnexo,
		opt(p.PresumptionPercent),
		opt(p.CSLLPresumptionPercent),
		opt(p.PISRate),
		opt(p.COFINSRate),
	}, "|")
}

// Validate checks presence and ranges of every field and returns the
// normalized profile. The first violation found is returned as *ErrDomain.
func (r CompareRequest) Validate() (CompanyProfile, error) {
	var p CompanyProfile
	var err error

	money := []struct {
		field string
		in    *decimal.Decimal
		out   *decimal.Decimal
	}{
		{"monthly_revenue", r.MonthlyRevenue, &p.MonthlyRevenue},
		{"annual_revenue", r.AnnualRevenue, &p.AnnualRevenue},
		{"annual_payroll", r.AnnualPayroll, &p.AnnualPayroll},
		{"pro_labore_monthly", r.ProLaboreMonthly, &p.ProLaboreMonthly},
	}
	for _, m := range money {
		if *m.out, err = requireMoney(m.field, m.in); err != nil {
			return CompanyProfile{}, err
		}
	}

	if p.ISSRate, err = requireRate("iss_rate", r.ISSRate); err != nil {
		return CompanyProfile{}, err
	}
	if p.INSSPatronalRate, err = requireRate("inss_patronal_rate", r.INSSPatronalRate); err != nil {
		return CompanyProfile{}, err
	}

	if r.Atividade == nil {
		return CompanyProfile{}, &ErrDomain{Field: "atividade", Message: "is required"}
	}
	switch a := Activity(strings.ToLower(strings.TrimSpace(*r.Atividade))); a {
	case ActivityServicos, ActivityOutras:
		p.Atividade = a
	default:
		return CompanyProfile{}, &ErrDomain{
			Field:   "atividade",
			Message: fmt.Sprintf("unknown activity %q (expected servicos or outras)", *r.Atividade),
		}
	}

	if r.ForceAnexo != nil && strings.TrimSpace(*r.ForceAnexo) != "" {
		switch v := strings.ToUpper(strings.TrimSpace(*r.ForceAnexo)); v {
		case "III", "V":
			p.ForceAnexo = v
		default:
			return CompanyProfile{}, &ErrDomain{Field: "force_anexo", Message: "must be III or V"}
		}
	}

	overrides := []struct {
		field string
		in    *decimal.Decimal
		out   **decimal.Decimal
	}{
		{"presumption_percent", r.PresumptionPercent, &p.PresumptionPercent},
		{"csll_presumption_percent", r.CSLLPresumptionPercent, &p.CSLLPresumptionPercent},
		{"pis_rate", r.PISRate, &p.PISRate},
		{"cofins_rate", r.COFINSRate, &p.COFINSRate},
	}
	for _, o := range overrides {
		if o.in == nil {
			continue
		}
		v, err := requireRate(o.field, o.in)
		if err != nil {
			return CompanyProfile{}, err
		}
		*o.out = &v
	}

	if r.AsOf != nil && *r.AsOf != "" {
		p.AsOf = strings.TrimSpace(*r.AsOf)
		if _, err := p.AsOfDate(time.Time{}); err != nil {
			return CompanyProfile{}, err
		}
	}

	return p, nil
}

// Validate returns the base profile (pró-labore taken from scenario A when
// the base omits it) and both pró-labore values.
func (r ScenarioRequest) Validate() (CompanyProfile, decimal.Decimal, decimal.Decimal, error) {
	a, err := requireMoney("pro_labore_monthly_a", r.ProLaboreMonthlyA)
	if err != nil {
		return CompanyProfile{}, decimal.Zero, decimal.Zero, err
	}
	b, err := requireMoney("pro_labore_monthly_b", r.ProLaboreMonthlyB)
	if err != nil {
		return CompanyProfile{}, decimal.Zero, decimal.Zero, err
	}

	base := r.CompareRequest
	if base.ProLaboreMonthly == nil {
		base.ProLaboreMonthly = &a
	}
	p, err := base.Validate()
	if err != nil {
		return CompanyProfile{}, decimal.Zero, decimal.Zero, err
	}
	return p, a, b, nil
}

func requireMoney(field string, v *decimal.Decimal) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, &ErrDomain{Field: field, Message: "is required"}
	}
	if v.IsNegative() {
		return decimal.Zero, &ErrDomain{Field: field, Message: "must be greater than or equal to zero"}
	}
	return *v, nil
}

func requireRate(field string, v *decimal.Decimal) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, &ErrDomain{Field: field, Message: "is required"}
	}
	if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, &ErrDomain{Field: field, Message: "must be a fraction between 0 and 1"}
	}
	return *v, nil
}
