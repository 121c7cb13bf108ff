package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Rate tables
// ============================================================

// Anexo names, in display order.
var AnexoNames = []string{"I", "II", "III", "IV", "V"}

// Bracket is one row of a progressive table. A nil Max marks the unbounded
// last bracket. A base exactly equal to Max belongs to this bracket.
type Bracket struct {
	Max      *decimal.Decimal `yaml:"max" json:"max"`
	Aliquota decimal.Decimal  `yaml:"aliquota" json:"aliquota"`
	Deduz    decimal.Decimal  `yaml:"deduz" json:"deduz"`
}

// RateTable is an ordered sequence of brackets covering [0, ∞).
type RateTable []Bracket

// Min returns the exclusive lower bound of bracket i (zero for the first).
func (t RateTable) Min(i int) decimal.Decimal {
	if i <= 0 || i > len(t) {
		return decimal.Zero
	}
	if t[i-1].Max == nil {
		return decimal.Zero
	}
	return *t[i-1].Max
}

// Clone returns a deep copy, so callers never share bracket bounds.
func (t RateTable) Clone() RateTable {
	if t == nil {
		return nil
	}
	out := make(RateTable, len(t))
	for i, b := range t {
		out[i] = Bracket{Aliquota: b.Aliquota, Deduz: b.Deduz}
		if b.Max != nil {
			m := *b.Max
			out[i].Max = &m
		}
	}
	return out
}

// AnexoTable is a named Simples Nacional schedule (I to V).
type AnexoTable struct {
	Name     string    `json:"anexo"`
	Brackets RateTable `json:"faixas"`
}

// Constants holds every scalar rate or threshold the calculators apply.
type Constants struct {
	FatorRThreshold decimal.Decimal `yaml:"fator_r_threshold" json:"fator_r_threshold"`

	INSSCeiling            decimal.Decimal `yaml:"inss_ceiling" json:"inss_ceiling"`
	IRRFDependentDeduction decimal.Decimal `yaml:"irrf_dependent_deduction" json:"irrf_dependent_deduction"`
	IRRFOffsetShare        decimal.Decimal `yaml:"irrf_offset_share" json:"irrf_offset_share"`

	ISSRateDefault          decimal.Decimal `yaml:"iss_rate_default" json:"iss_rate_default"`
	INSSPatronalRateDefault decimal.Decimal `yaml:"inss_patronal_rate_default" json:"inss_patronal_rate_default"`

	PresumptionPercentIRPJ         decimal.Decimal `yaml:"presumption_percent_irpj" json:"presumption_percent_irpj"`
	PresumptionPercentCSLL         decimal.Decimal `yaml:"presumption_percent_csll" json:"presumption_percent_csll"`
	IRPJRate                       decimal.Decimal `yaml:"irpj_rate" json:"irpj_rate"`
	IRPJAdditionalRate             decimal.Decimal `yaml:"irpj_additional_rate" json:"irpj_additional_rate"`
	IRPJAdditionalThresholdMonthly decimal.Decimal `yaml:"irpj_additional_threshold_monthly" json:"irpj_additional_threshold_monthly"`
	CSLLRate                       decimal.Decimal `yaml:"csll_rate" json:"csll_rate"`
	PISRate                        decimal.Decimal `yaml:"pis_rate" json:"pis_rate"`
	COFINSRate                     decimal.Decimal `yaml:"cofins_rate" json:"cofins_rate"`
}

// TableSet is one immutable version of every table the engine consults.
type TableSet struct {
	Version   string
	ValidFrom time.Time
	Anexos    map[string]AnexoTable
	IRRF      RateTable
	INSS      RateTable
	Constants Constants
}

// Anexo returns the named schedule.
func (ts TableSet) Anexo(name string) (AnexoTable, bool) {
	a, ok := ts.Anexos[name]
	return a, ok
}

// Clone returns a deep copy of the set.
func (ts TableSet) Clone() TableSet {
	out := ts
	out.Anexos = make(map[string]AnexoTable, len(ts.Anexos))
	for k, a := range ts.Anexos {
		out.Anexos[k] = AnexoTable{Name: a.Name, Brackets: a.Brackets.Clone()}
	}
	out.IRRF = ts.IRRF.Clone()
	out.INSS = ts.INSS.Clone()
	return out
}

// ============================================================
// Snapshot echoed in every response (tables_used)
// ============================================================

// TablesMeta identifies where a table set came from.
type TablesMeta struct {
	Source     string `json:"source"`
	LoadedAt   string `json:"loaded_at"`
	Version    string `json:"version"`
	ValidFrom  string `json:"valid_from"`
	SnapshotID string `json:"snapshot_id"`
}

// TablesSnapshot is the raw content of the tables used in a computation.
type TablesSnapshot struct {
	AnexoI    RateTable `json:"anexo_I"`
	AnexoII   RateTable `json:"anexo_II"`
	AnexoIII  RateTable `json:"anexo_III"`
	AnexoIV   RateTable `json:"anexo_IV"`
	AnexoV    RateTable `json:"anexo_V"`
	IRRFTable RateTable `json:"irrf_table"`
	INSSTable RateTable `json:"inss_table"`
	Constants Constants `json:"constants"`
}

// TablesUsed pairs the snapshot with its provenance.
type TablesUsed struct {
	Meta   TablesMeta     `json:"meta"`
	Tables TablesSnapshot `json:"tables"`
}

// NewTablesUsed copies ts into the response snapshot shape.
func NewTablesUsed(ts TableSet, meta TablesMeta) TablesUsed {
	c := ts.Clone()
	return TablesUsed{
		Meta: meta,
		Tables: TablesSnapshot{
			AnexoI:    c.Anexos["I"].Brackets,
			AnexoII:   c.Anexos["II"].Brackets,
			AnexoIII:  c.Anexos["III"].Brackets,
			AnexoIV:   c.Anexos["IV"].Brackets,
			AnexoV:    c.Anexos["V"].Brackets,
			IRRFTable: c.IRRF,
			INSSTable: c.INSS,
			Constants: c.Constants,
		},
	}
}

// TableVersionStatus summarizes one loaded version.
type TableVersionStatus struct {
	Version   string `json:"version"`
	ValidFrom string `json:"valid_from"`
}

// TablesStatus is returned by GET /tables/status.
type TablesStatus struct {
	Source     string               `json:"source"`
	LoadedAt   string               `json:"loaded_at"`
	SnapshotID string               `json:"snapshot_id"`
	Versions   []TableVersionStatus `json:"versions"`
}
