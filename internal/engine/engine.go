package engine

import (
	"github.com/boddenberg/pj-tributario-go/internal/domain"
)

// Compute runs every calculator for one profile against one table set and
// assembles the /compare response. It never mutates ts.
func Compute(ts domain.TableSet, meta domain.TablesMeta, p domain.CompanyProfile) (*domain.ComputationResult, error) {
	pl, err := ComputeProlabore(ts, p.ProLaboreMonthly)
	if err != nil {
		return nil, err
	}

	scenarios, err := DecideFatorR(ts, p, pl)
	if err != nil {
		return nil, err
	}

	all, err := ComputeAll(ts, p.MonthlyRevenue, p.AnnualRevenue)
	if err != nil {
		return nil, err
	}

	presumido, err := ComputePresumido(p, ts.Constants)
	if err != nil {
		return nil, err
	}

	return &domain.ComputationResult{
		Inputs:           p,
		Simples:          scenarios.Selected(),
		SimplesAll:       all,
		SimplesScenarios: scenarios,
		Presumido:        presumido,
		Prolabore:        pl,
		TablesUsed:       domain.NewTablesUsed(ts, meta),
	}, nil
}
