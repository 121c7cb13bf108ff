package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/config"
	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/infra/ratetable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:       "error",
		HTTPTimeout:    time.Second,
		InitialBackoff: time.Millisecond,
		CacheTTL:       time.Minute,
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(testConfig())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd(testConfig())
	assert.Equal(t, "tributario", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "compare", "tables", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "tributario dev"))
}

func TestCompare_JSON(t *testing.T) {
	out, err := run(t, "compare",
		"--monthly-revenue", "50000",
		"--annual-payroll", "180000",
		"--pro-labore-a", "8000",
		"--pro-labore-b", "3000",
		"--as-of", "2025-06-01",
		"--format", "json",
	)
	require.NoError(t, err, out)

	var got domain.ScenarioComparison
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "III", got.ScenarioA.Simples.Anexo)
	assert.Equal(t, "600000", got.ScenarioA.Inputs.AnnualRevenue.String())
	assert.Equal(t, "929.59", got.ScenarioA.Prolabore.INSS.StringFixed(2))
	assert.Equal(t, "3000", got.ScenarioB.Inputs.ProLaboreMonthly.String())
	assert.Equal(t, "2025-05", got.TablesUsed.Version)
}

func TestCompare_SingleScenarioJSON(t *testing.T) {
	out, err := run(t, "compare",
		"--monthly-revenue", "50000",
		"--annual-revenue", "600000",
		"--annual-payroll", "0",
		"--as-of", "2025-06-01",
		"--format", "json",
	)
	require.NoError(t, err, out)

	var got domain.ComputationResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "V", got.Simples.Anexo)
}

func TestCompare_Table(t *testing.T) {
	out, err := run(t, "compare",
		"--monthly-revenue", "50000",
		"--annual-payroll", "180000",
		"--pro-labore-a", "8000",
		"--pro-labore-b", "3000",
		"--as-of", "2025-06-01",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cenário A")
	assert.Contains(t, out, "Cenário B")
	assert.Contains(t, out, "III (faixa 3)")
	assert.Contains(t, out, "63360.00")
	assert.Contains(t, out, "Fator R")
}

func TestCompare_RatesDefaultFromTables(t *testing.T) {
	doc := strings.ReplaceAll(string(ratetable.DefaultTables()), "iss_rate_default: 0.02", "iss_rate_default: 0.05")
	doc = strings.ReplaceAll(doc, "inss_patronal_rate_default: 0.20", "inss_patronal_rate_default: 0.25")
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	args := []string{"compare", "--tables-file", path,
		"--monthly-revenue", "50000",
		"--as-of", "2025-06-01",
		"--format", "json",
	}

	out, err := run(t, args...)
	require.NoError(t, err, out)
	var got domain.ComputationResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "0.05", got.Presumido.RatesUsed.ISSRate.String())
	assert.Equal(t, "0.25", got.Presumido.RatesUsed.INSSPatronalRate.String())

	// Explicit flags win over the table defaults.
	out, err = run(t, append(args, "--iss-rate", "0.03")...)
	require.NoError(t, err, out)
	got = domain.ComputationResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "0.03", got.Presumido.RatesUsed.ISSRate.String())
	assert.Equal(t, "0.25", got.Presumido.RatesUsed.INSSPatronalRate.String())
}

func TestCompare_Rejections(t *testing.T) {
	_, err := run(t, "compare", "--monthly-revenue", "abc")
	var domainErr *domain.ErrDomain
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "monthly_revenue", domainErr.Field)

	_, err = run(t, "compare", "--monthly-revenue", "1000", "--iss-rate", "1.5")
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "iss_rate", domainErr.Field)

	_, err = run(t, "compare", "--monthly-revenue", "1000", "--format", "xml")
	assert.Error(t, err)

	_, err = run(t, "compare")
	assert.Error(t, err, "monthly-revenue is required")
}

func TestTablesValidate(t *testing.T) {
	out, err := run(t, "tables", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 3 version(s) from "+ratetable.SourceEmbedded)
	assert.Contains(t, out, "2025-05")

	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, ratetable.DefaultTables(), 0o600))
	out, err = run(t, "tables", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "file:"+path)
}

func TestTablesValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("versions: []\n"), 0o600))

	_, err := run(t, "tables", "validate", path)
	var cfgErr *domain.ErrConfiguration
	require.ErrorAs(t, err, &cfgErr)
}

func TestTablesShow(t *testing.T) {
	out, err := run(t, "tables", "show", "--as-of", "2025-01-15")
	require.NoError(t, err)

	var used domain.TablesUsed
	require.NoError(t, json.Unmarshal([]byte(out), &used))
	assert.Equal(t, "2025-01", used.Meta.Version)
	assert.Len(t, used.Tables.AnexoV, 6)

	_, err = run(t, "tables", "show", "--as-of", "2000-01-01")
	var notFound *domain.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}
