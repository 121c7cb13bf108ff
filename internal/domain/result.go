package domain

import "github.com/shopspring/decimal"

// Money in every encoding of these types is a JSON number: HTTP responses,
// CLI --format json and the snapshots tests compare against. Setting it at
// package init makes any importer of domain agree, not only cmd/tributario.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// ============================================================
// Simples Nacional
// ============================================================

// AnexoResult is the Simples Nacional outcome for one Anexo.
type AnexoResult struct {
	Anexo         string           `json:"anexo"`
	Faixa         int              `json:"faixa"`
	Aliquota      decimal.Decimal  `json:"aliquota"`
	Deduz         decimal.Decimal  `json:"deduz"`
	EffectiveRate decimal.Decimal  `json:"effective_rate"`
	TaxMonthly    decimal.Decimal  `json:"tax_monthly"`
	TaxAnnual     decimal.Decimal  `json:"tax_annual"`
	FactorR       *decimal.Decimal `json:"factor_r,omitempty"`

	// Set on the two Fator R branches only.
	TotalMonthlyIncludingProlabore       *decimal.Decimal `json:"total_monthly_including_prolabore,omitempty"`
	TotalAnnualIncludingProlabore        *decimal.Decimal `json:"total_annual_including_prolabore,omitempty"`
	TotalMonthlyIncludingProlaboreIRRF50 *decimal.Decimal `json:"total_monthly_including_prolabore_irrf50,omitempty"`
	TotalAnnualIncludingProlaboreIRRF50  *decimal.Decimal `json:"total_annual_including_prolabore_irrf50,omitempty"`
}

// Scenario names reported in cheaper_scenario.
const (
	ScenarioWithFactorR    = "with_factor_r"
	ScenarioWithoutFactorR = "without_factor_r"
)

// SimplesScenarios exposes both Fator R branches. Chosen names the Anexo the
// business is entitled to; Selected returns that branch.
type SimplesScenarios struct {
	WithFactorR     AnexoResult `json:"with_factor_r"`
	WithoutFactorR  AnexoResult `json:"without_factor_r"`
	Chosen          string      `json:"chosen"`
	DecisionReason  string      `json:"decision_reason"`
	CheaperScenario string      `json:"cheaper_scenario"`
}

// Selected returns the branch named by Chosen.
func (s SimplesScenarios) Selected() AnexoResult {
	if s.Chosen == s.WithFactorR.Anexo {
		return s.WithFactorR
	}
	return s.WithoutFactorR
}

// ============================================================
// Lucro Presumido
// ============================================================

// RatesUsed echoes every rate and threshold applied by the Presumido calculator.
type RatesUsed struct {
	PresumptionPercentIRPJ         decimal.Decimal `json:"presumption_percent_irpj"`
	IRPJRate                       decimal.Decimal `json:"irpj_rate"`
	IRPJAdditionalRate             decimal.Decimal `json:"irpj_additional_rate"`
	IRPJAdditionalThresholdMonthly decimal.Decimal `json:"irpj_additional_threshold_monthly"`
	PresumptionPercentCSLL         decimal.Decimal `json:"presumption_percent_csll"`
	CSLLRate                       decimal.Decimal `json:"csll_rate"`
	PISRate                        decimal.Decimal `json:"pis_rate"`
	COFINSRate                     decimal.Decimal `json:"cofins_rate"`
	ISSRate                        decimal.Decimal `json:"iss_rate"`
	INSSPatronalRate               decimal.Decimal `json:"inss_patronal_rate"`
	INSSPatronalBaseMonthly        decimal.Decimal `json:"inss_patronal_base_monthly"`
}

// PresumidoResult is the Lucro Presumido breakdown. Annual figures unless
// the field name says monthly.
type PresumidoResult struct {
	BaseIRPJ      decimal.Decimal `json:"base_irpj"`
	IRPJ          decimal.Decimal `json:"irpj"`
	IRPJAdicional decimal.Decimal `json:"irpj_adicional"`
	BaseCSLL      decimal.Decimal `json:"base_csll"`
	CSLL          decimal.Decimal `json:"csll"`
	PIS           decimal.Decimal `json:"pis"`
	COFINS        decimal.Decimal `json:"cofins"`
	ISS           decimal.Decimal `json:"iss"`
	ISSMonthly    decimal.Decimal `json:"iss_monthly"`

	INSSPatronalBaseMonthly decimal.Decimal `json:"inss_patronal_base_monthly"`
	INSSPatronalMonthly     decimal.Decimal `json:"inss_patronal_monthly"`
	INSSPatronalAnnual      decimal.Decimal `json:"inss_patronal_annual"`

	TotalAnnual              decimal.Decimal `json:"total_annual"`
	TotalMonthly             decimal.Decimal `json:"total_monthly"`
	TotalAnnualWithPatronal  decimal.Decimal `json:"total_annual_with_patronal"`
	TotalMonthlyWithPatronal decimal.Decimal `json:"total_monthly_with_patronal"`

	RatesUsed RatesUsed `json:"rates_used"`
}

// ============================================================
// Pró-labore
// ============================================================

// ProlaboreResult holds the monthly withholding on the pró-labore.
type ProlaboreResult struct {
	INSS     decimal.Decimal `json:"inss"`
	IRRF     decimal.Decimal `json:"irrf"`
	INSSBase decimal.Decimal `json:"inss_base"`
	IRRFBase decimal.Decimal `json:"irrf_base"`
}

// ============================================================
// POST /compare response
// ============================================================

// ComputationResult is the full answer for one company profile.
type ComputationResult struct {
	Inputs           CompanyProfile         `json:"inputs"`
	Simples          AnexoResult            `json:"simples"`
	SimplesAll       map[string]AnexoResult `json:"simples_all"`
	SimplesScenarios SimplesScenarios       `json:"simples_scenarios"`
	Presumido        PresumidoResult        `json:"presumido"`
	Prolabore        ProlaboreResult        `json:"prolabore"`
	TablesUsed       TablesUsed             `json:"tables_used"`
}

// ScenarioComparison pairs two results differing only in pró-labore.
type ScenarioComparison struct {
	ScenarioA  *ComputationResult `json:"scenario_a"`
	ScenarioB  *ComputationResult `json:"scenario_b"`
	TablesUsed TablesMeta         `json:"tables_used"`
}

// EffectiveRateResult is returned by the effective-rate display endpoint.
type EffectiveRateResult struct {
	Anexo         string          `json:"anexo"`
	AnnualRevenue decimal.Decimal `json:"annual_revenue"`
	Faixa         int             `json:"faixa"`
	Aliquota      decimal.Decimal `json:"aliquota"`
	Deduz         decimal.Decimal `json:"deduz"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
	TablesVersion string          `json:"tables_version"`
}
