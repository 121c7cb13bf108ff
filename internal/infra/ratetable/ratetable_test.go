package ratetable_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/infra/ratetable"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docHeader = `
t: &t
  - { max: 100, aliquota: 0.1, deduz: 0 }
  - { aliquota: 0.2, deduz: 10 }
versions:
`

func versionEntry(name, validFrom string) string {
	return `
  - version: "` + name + `"
    valid_from: "` + validFrom + `"
    anexos: { I: *t, II: *t, III: *t, IV: *t, V: *t }
    irrf: *t
    inss: *t
    constants:
      fator_r_threshold: 0.28
      inss_ceiling: 1000
      irrf_dependent_deduction: 189.59
      irrf_offset_share: 0.5
      iss_rate_default: 0.02
      inss_patronal_rate_default: 0.20
      presumption_percent_irpj: 0.32
      presumption_percent_csll: 0.32
      irpj_rate: 0.15
      irpj_additional_rate: 0.10
      irpj_additional_threshold_monthly: 20000
      csll_rate: 0.09
      pis_rate: 0.0065
      cofins_rate: 0.03
`
}

func validDoc() string {
	return docHeader + versionEntry("v1", "2024-01-01")
}

func date(s string) time.Time {
	t, err := time.Parse(domain.AsOfLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLoadDefault(t *testing.T) {
	repo, err := ratetable.LoadDefault()
	require.NoError(t, err)

	st := repo.Status()
	assert.Equal(t, ratetable.SourceEmbedded, st.Source)
	assert.NotEmpty(t, st.SnapshotID)
	require.Len(t, st.Versions, 3)
	assert.Equal(t, "2024-02", st.Versions[0].Version)
	assert.Equal(t, "2025-01", st.Versions[1].Version)
	assert.Equal(t, "2025-05", st.Versions[2].Version)
}

func TestRepository_GetSelectsLatestValidFrom(t *testing.T) {
	repo, err := ratetable.LoadDefault()
	require.NoError(t, err)

	tests := []struct {
		asOf string
		want string
	}{
		{"2024-02-01", "2024-02"},
		{"2024-12-31", "2024-02"},
		{"2025-01-01", "2025-01"},
		{"2025-04-30", "2025-01"},
		{"2025-05-01", "2025-05"},
		{"2030-01-01", "2025-05"},
	}
	for _, tc := range tests {
		t.Run(tc.asOf, func(t *testing.T) {
			ts, err := repo.Get(date(tc.asOf))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ts.Version)
		})
	}
}

func TestRepository_GetBeforeFirstVersion(t *testing.T) {
	repo, err := ratetable.LoadDefault()
	require.NoError(t, err)

	_, err = repo.Get(date("2023-12-31"))
	var notFound *domain.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestRepository_GetReturnsCopy(t *testing.T) {
	repo, err := ratetable.LoadDefault()
	require.NoError(t, err)
	asOf := date("2025-06-01")

	ts, err := repo.Get(asOf)
	require.NoError(t, err)
	original := ts.Anexos["III"].Brackets[0].Max.String()

	changed := decimal.NewFromInt(1)
	*ts.Anexos["III"].Brackets[0].Max = changed
	ts.IRRF[0].Aliquota = decimal.NewFromInt(1)
	delete(ts.Anexos, "V")

	again, err := repo.Get(asOf)
	require.NoError(t, err)
	assert.Equal(t, original, again.Anexos["III"].Brackets[0].Max.String())
	assert.True(t, again.IRRF[0].Aliquota.IsZero())
	assert.Contains(t, again.Anexos, "V")
}

func TestRepository_Meta(t *testing.T) {
	repo, err := ratetable.LoadDefault()
	require.NoError(t, err)

	ts, err := repo.Get(date("2025-06-01"))
	require.NoError(t, err)

	meta := repo.Meta(ts)
	assert.Equal(t, ratetable.SourceEmbedded, meta.Source)
	assert.Equal(t, "2025-05", meta.Version)
	assert.Equal(t, "2025-05-01", meta.ValidFrom)
	assert.Equal(t, repo.Status().SnapshotID, meta.SnapshotID)
	_, err = time.Parse(time.RFC3339, meta.LoadedAt)
	assert.NoError(t, err)
}

// Every shipped table must be contiguous, start at zero, end unbounded and
// have non-decreasing rates and deductions.
func TestDefaultTables_Invariants(t *testing.T) {
	repo, err := ratetable.LoadDefault()
	require.NoError(t, err)

	for _, v := range repo.Status().Versions {
		ts, err := repo.Get(date(v.ValidFrom))
		require.NoError(t, err)

		tables := map[string]domain.RateTable{"irrf": ts.IRRF, "inss": ts.INSS}
		for name, a := range ts.Anexos {
			tables["anexo "+name] = a.Brackets
		}

		for name, table := range tables {
			require.NotEmpty(t, table, "%s/%s", v.Version, name)
			assert.Nil(t, table[len(table)-1].Max, "%s/%s: last bracket must be unbounded", v.Version, name)
			for i := 1; i < len(table); i++ {
				prev, cur := table[i-1], table[i]
				require.NotNil(t, prev.Max)
				assert.True(t, cur.Aliquota.GreaterThanOrEqual(prev.Aliquota), "%s/%s bracket %d rate", v.Version, name, i+1)
				assert.True(t, cur.Deduz.GreaterThanOrEqual(prev.Deduz), "%s/%s bracket %d deduction", v.Version, name, i+1)
				if cur.Max != nil {
					assert.True(t, cur.Max.GreaterThan(*prev.Max), "%s/%s bracket %d bound", v.Version, name, i+1)
				}
				assert.True(t, table.Min(i).Equal(*prev.Max))
			}
			assert.True(t, table.Min(0).IsZero())
		}
	}
}

func TestParse_Valid(t *testing.T) {
	sets, err := ratetable.Parse([]byte(validDoc()), "test")
	require.NoError(t, err)
	require.Len(t, sets, 1)

	ts := sets[0]
	assert.Equal(t, "v1", ts.Version)
	assert.Len(t, ts.Anexos, 5)
	assert.Equal(t, "III", ts.Anexos["III"].Name)
	assert.True(t, ts.Constants.FatorRThreshold.Equal(decimal.RequireFromString("0.28")))
	assert.True(t, ts.Constants.INSSCeiling.Equal(decimal.NewFromInt(1000)))
}

func TestParse_OrdersVersionsByValidFrom(t *testing.T) {
	doc := docHeader + versionEntry("late", "2025-01-01") + versionEntry("early", "2024-01-01")

	sets, err := ratetable.Parse([]byte(doc), "test")
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "early", sets[0].Version)
	assert.Equal(t, "late", sets[1].Version)
}

func TestParse_JSON(t *testing.T) {
	bracket := `{"max": 100, "aliquota": 0.1, "deduz": 0}, {"max": null, "aliquota": 0.2, "deduz": 10}`
	table := "[" + bracket + "]"
	doc := `{"versions": [{"version": "json", "valid_from": "2024-01-01", ` +
		`"anexos": {"I": ` + table + `, "II": ` + table + `, "III": ` + table + `, "IV": ` + table + `, "V": ` + table + `}, ` +
		`"irrf": ` + table + `, "inss": ` + table + `, ` +
		`"constants": {"fator_r_threshold": 0.28, "inss_ceiling": 1000, "irrf_offset_share": 0.5}}]}`

	sets, err := ratetable.Parse([]byte(doc), "json")
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Nil(t, sets[0].IRRF[1].Max)
}

func TestParse_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"broken yaml", "versions: ["},
		{"no versions", "versions: []"},
		{"unknown field", strings.Replace(validDoc(), "irpj_rate:", "irpj_ratee:", 1)},
		{"bad valid_from", strings.Replace(validDoc(), "2024-01-01", "01/01/2024", 1)},
		{"duplicate version", docHeader + versionEntry("v1", "2024-01-01") + versionEntry("v1", "2025-01-01")},
		{"shared valid_from", docHeader + versionEntry("a", "2024-01-01") + versionEntry("b", "2024-01-01")},
		{"missing anexo", strings.Replace(validDoc(), ", V: *t", "", 1)},
		{"unknown anexo", strings.Replace(validDoc(), ", V: *t", ", V: *t, VI: *t", 1)},
		{"rate above one", strings.Replace(validDoc(), "aliquota: 0.2,", "aliquota: 1.2,", 1)},
		{"negative rate", strings.Replace(validDoc(), "aliquota: 0.1,", "aliquota: -0.1,", 1)},
		{"decreasing rate", strings.Replace(validDoc(), "aliquota: 0.2,", "aliquota: 0.05,", 1)},
		{"negative deduction", strings.Replace(validDoc(), "deduz: 10 }", "deduz: -10 }", 1)},
		{"last bracket bounded", strings.Replace(validDoc(), "{ aliquota: 0.2, deduz: 10 }", "{ max: 200, aliquota: 0.2, deduz: 10 }", 1)},
		{"unbounded bracket not last", strings.Replace(validDoc(), "{ max: 100, aliquota: 0.1, deduz: 0 }", "{ aliquota: 0.1, deduz: 0 }", 1)},
		{"non increasing bounds", strings.Replace(validDoc(), "  - { aliquota: 0.2, deduz: 10 }", "  - { max: 50, aliquota: 0.15, deduz: 5 }\n  - { aliquota: 0.2, deduz: 10 }", 1)},
		{"zero first bound", strings.Replace(validDoc(), "{ max: 100, aliquota: 0.1,", "{ max: 0, aliquota: 0.1,", 1)},
		{"constant out of range", strings.Replace(validDoc(), "csll_rate: 0.09", "csll_rate: 9", 1)},
		{"zero inss ceiling", strings.Replace(validDoc(), "inss_ceiling: 1000", "inss_ceiling: 0", 1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ratetable.Parse([]byte(tc.doc), "test")
			var cfgErr *domain.ErrConfiguration
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "test", cfgErr.Source)
		})
	}
}

func TestParse_BoundMustExceedPrevious(t *testing.T) {
	doc := strings.Replace(validDoc(), "  - { aliquota: 0.2, deduz: 10 }", "  - { max: 100, aliquota: 0.15, deduz: 5 }\n  - { aliquota: 0.2, deduz: 10 }", 1)

	_, err := ratetable.Parse([]byte(doc), "test")
	var cfgErr *domain.ErrConfiguration
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "upper bound 100 does not exceed lower bound 100")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc()), 0o600))

	repo, err := ratetable.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file:"+path, repo.Status().Source)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := ratetable.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	var cfgErr *domain.ErrConfiguration
	require.ErrorAs(t, err, &cfgErr)
}

func TestNewRepository_RejectsUnordered(t *testing.T) {
	sets, err := ratetable.Parse([]byte(docHeader+versionEntry("a", "2024-01-01")+versionEntry("b", "2025-01-01")), "test")
	require.NoError(t, err)

	_, err = ratetable.NewRepository([]domain.TableSet{sets[1], sets[0]}, "test", time.Now())
	var cfgErr *domain.ErrConfiguration
	require.ErrorAs(t, err, &cfgErr)
}
