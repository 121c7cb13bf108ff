package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/config"
	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/infra/cache"
	"github.com/boddenberg/pj-tributario-go/internal/infra/observability"
	"github.com/boddenberg/pj-tributario-go/internal/infra/ratetable"
	"github.com/boddenberg/pj-tributario-go/internal/service"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type compareFlags struct {
	monthlyRevenue string
	annualRevenue  string
	annualPayroll  string
	proLaboreA     string
	proLaboreB     string
	issRate        string
	patronalRate   string
	atividade      string
	forceAnexo     string
	asOf           string
	format         string
}

func compareCmd(cfg *config.Config) *cobra.Command {
	f := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare Simples Nacional and Lucro Presumido for one or two pró-labore values",
		Example: "  tributario compare --monthly-revenue 50000 --annual-payroll 180000 \\\n" +
			"    --pro-labore-a 8000 --pro-labore-b 3000",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), cmd.OutOrStdout(), cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.monthlyRevenue, "monthly-revenue", "", "monthly revenue (required)")
	fl.StringVar(&f.annualRevenue, "annual-revenue", "", "trailing 12-month revenue (default 12 x monthly revenue)")
	fl.StringVar(&f.annualPayroll, "annual-payroll", "0", "trailing 12-month payroll, pró-labore included")
	fl.StringVar(&f.proLaboreA, "pro-labore-a", "0", "monthly pró-labore, scenario A")
	fl.StringVar(&f.proLaboreB, "pro-labore-b", "", "monthly pró-labore, scenario B (optional)")
	fl.StringVar(&f.issRate, "iss-rate", "", "municipal ISS rate as a fraction (default from the rate tables)")
	fl.StringVar(&f.patronalRate, "inss-patronal-rate", "", "employer INSS rate as a fraction (default from the rate tables)")
	fl.StringVar(&f.atividade, "atividade", string(domain.ActivityServicos), "servicos or outras")
	fl.StringVar(&f.forceAnexo, "force-anexo", "", "force Anexo III or V")
	fl.StringVar(&f.asOf, "as-of", "", "reference date YYYY-MM-DD selecting the table version (default today)")
	fl.StringVar(&f.format, "format", "table", "output format: table or json")
	_ = cmd.MarkFlagRequired("monthly-revenue")

	return cmd
}

func runCompare(ctx context.Context, w io.Writer, cfg *config.Config, f *compareFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if f.format != "table" && f.format != "json" {
		return fmt.Errorf("unknown format %q (expected table or json)", f.format)
	}

	req, err := f.request()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()
	metrics := observability.NewMetrics()

	tables, err := openTables(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	if err := applyTableDefaults(&req, tables); err != nil {
		return err
	}
	base, a, b, err := req.Validate()
	if err != nil {
		return err
	}
	svc := service.NewCompareService(tables, cache.New[*domain.ComputationResult](0), nil, metrics, logger)

	var (
		labels  []string
		results []*domain.ComputationResult
		payload any
	)
	if f.proLaboreB == "" {
		r, err := svc.Compute(ctx, base)
		if err != nil {
			return err
		}
		labels, results, payload = []string{"Resultado"}, []*domain.ComputationResult{r}, r
	} else {
		out, err := svc.Compare(ctx, base, a, b)
		if err != nil {
			return err
		}
		labels = []string{"Cenário A", "Cenário B"}
		results = []*domain.ComputationResult{out.ScenarioA, out.ScenarioB}
		payload = out
	}

	if f.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	renderComparison(w, labels, results)
	return nil
}

func (f *compareFlags) request() (domain.ScenarioRequest, error) {
	var req domain.ScenarioRequest
	var err error

	fields := []struct {
		name  string
		value string
		dst   **decimal.Decimal
	}{
		{"monthly_revenue", f.monthlyRevenue, &req.MonthlyRevenue},
		{"annual_revenue", f.annualRevenue, &req.AnnualRevenue},
		{"annual_payroll", f.annualPayroll, &req.AnnualPayroll},
		{"pro_labore_monthly_a", f.proLaboreA, &req.ProLaboreMonthlyA},
		{"pro_labore_monthly_b", f.proLaboreB, &req.ProLaboreMonthlyB},
		{"iss_rate", f.issRate, &req.ISSRate},
		{"inss_patronal_rate", f.patronalRate, &req.INSSPatronalRate},
	}
	for _, fd := range fields {
		if *fd.dst, err = parseDecimalFlag(fd.name, fd.value); err != nil {
			return req, err
		}
	}

	if req.AnnualRevenue == nil && req.MonthlyRevenue != nil {
		annual := req.MonthlyRevenue.Mul(decimal.NewFromInt(12))
		req.AnnualRevenue = &annual
	}
	if req.ProLaboreMonthlyB == nil {
		req.ProLaboreMonthlyB = req.ProLaboreMonthlyA
	}

	req.Atividade = &f.atividade
	if f.forceAnexo != "" {
		req.ForceAnexo = &f.forceAnexo
	}
	if f.asOf != "" {
		req.AsOf = &f.asOf
	}
	return req, nil
}

// applyTableDefaults fills the ISS and patronal rates left unset from the
// constants of the table version in force on the request's as_of date.
func applyTableDefaults(req *domain.ScenarioRequest, tables *ratetable.Repository) error {
	if req.ISSRate != nil && req.INSSPatronalRate != nil {
		return nil
	}

	asOf := time.Now()
	if req.AsOf != nil {
		t, err := time.Parse(domain.AsOfLayout, *req.AsOf)
		if err != nil {
			return &domain.ErrDomain{Field: "as_of", Message: "must be a date in YYYY-MM-DD format"}
		}
		asOf = t
	}
	ts, err := tables.Get(asOf)
	if err != nil {
		return err
	}

	if req.ISSRate == nil {
		v := ts.Constants.ISSRateDefault
		req.ISSRate = &v
	}
	if req.INSSPatronalRate == nil {
		v := ts.Constants.INSSPatronalRateDefault
		req.INSSPatronalRate = &v
	}
	return nil
}

func parseDecimalFlag(field, value string) (*decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
	if err != nil {
		return nil, &domain.ErrDomain{Field: field, Message: fmt.Sprintf("%q is not a number", value)}
	}
	return &d, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Padding(0, 1)
	valueStyle  = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	reasonStyle = lipgloss.NewStyle().Faint(true)
)

func renderComparison(w io.Writer, labels []string, results []*domain.ComputationResult) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(append([]string{""}, labels...)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return labelStyle
			default:
				return valueStyle
			}
		})

	row := func(label string, cell func(r *domain.ComputationResult) string) {
		cells := []string{label}
		for _, r := range results {
			cells = append(cells, cell(r))
		}
		t.Row(cells...)
	}

	row("Pró-labore mensal", func(r *domain.ComputationResult) string { return money(r.Inputs.ProLaboreMonthly) })
	row("INSS pró-labore (mês)", func(r *domain.ComputationResult) string { return money(r.Prolabore.INSS) })
	row("IRRF pró-labore (mês)", func(r *domain.ComputationResult) string { return money(r.Prolabore.IRRF) })
	row("Fator R", func(r *domain.ComputationResult) string {
		if r.Simples.FactorR == nil {
			return "-"
		}
		return r.Simples.FactorR.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
	})
	row("Simples: anexo", func(r *domain.ComputationResult) string {
		return fmt.Sprintf("%s (faixa %d)", r.Simples.Anexo, r.Simples.Faixa)
	})
	row("Simples: imposto anual", func(r *domain.ComputationResult) string { return money(r.Simples.TaxAnnual) })
	row("Simples + pró-labore (ano)", func(r *domain.ComputationResult) string {
		return optionalMoney(r.Simples.TotalAnnualIncludingProlabore)
	})
	row("Presumido: tributos (ano)", func(r *domain.ComputationResult) string { return money(r.Presumido.TotalAnnual) })
	row("Presumido + INSS patronal (ano)", func(r *domain.ComputationResult) string {
		return money(r.Presumido.TotalAnnualWithPatronal)
	})

	fmt.Fprintln(w, t.String())
	for i, r := range results {
		fmt.Fprintln(w, reasonStyle.Render(labels[i]+": "+r.SimplesScenarios.DecisionReason))
	}
	if len(results) > 0 {
		meta := results[0].TablesUsed.Meta
		fmt.Fprintln(w, reasonStyle.Render(fmt.Sprintf("Tabelas %s (%s)", meta.Version, meta.Source)))
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return money(*d)
}
