// Package ratetable loads, validates and serves the versioned rate tables the
// engine consults. Tables are read once at startup and never mutated.
package ratetable

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"

	"gopkg.in/yaml.v3"
)

// SourceEmbedded identifies the tables compiled into the binary.
const SourceEmbedded = "embedded:default_tables.yaml"

//go:embed default_tables.yaml
var defaultTables []byte

// DefaultTables returns a copy of the embedded table document.
func DefaultTables() []byte {
	return bytes.Clone(defaultTables)
}

// document is the on-disk layout. Top-level keys other than "versions" hold
// YAML anchors shared between versions.
type document struct {
	Versions []versionDoc   `yaml:"versions"`
	Anchors  map[string]any `yaml:",inline"`
}

type versionDoc struct {
	Version   string                      `yaml:"version"`
	ValidFrom string                      `yaml:"valid_from"`
	Anexos    map[string]domain.RateTable `yaml:"anexos"`
	IRRF      domain.RateTable            `yaml:"irrf"`
	INSS      domain.RateTable            `yaml:"inss"`
	Constants domain.Constants            `yaml:"constants"`
}

// Parse decodes a YAML (or JSON) table document and validates every version.
// Versions are returned ordered by valid_from.
func Parse(data []byte, source string) ([]domain.TableSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.ErrConfiguration{Source: source, Reason: "table document is empty"}
		}
		return nil, &domain.ErrConfiguration{Source: source, Reason: fmt.Sprintf("decode: %v", err)}
	}
	if len(doc.Versions) == 0 {
		return nil, &domain.ErrConfiguration{Source: source, Reason: "no table versions defined"}
	}

	sets := make([]domain.TableSet, 0, len(doc.Versions))
	seen := make(map[string]bool, len(doc.Versions))
	for _, v := range doc.Versions {
		if v.Version == "" {
			return nil, &domain.ErrConfiguration{Source: source, Reason: "table version without a name"}
		}
		if seen[v.Version] {
			return nil, &domain.ErrConfiguration{Source: source, Reason: fmt.Sprintf("duplicate version %q", v.Version)}
		}
		seen[v.Version] = true

		validFrom, err := time.Parse(domain.AsOfLayout, v.ValidFrom)
		if err != nil {
			return nil, &domain.ErrConfiguration{
				Source: source,
				Reason: fmt.Sprintf("version %s: valid_from %q is not a YYYY-MM-DD date", v.Version, v.ValidFrom),
			}
		}

		ts := domain.TableSet{
			Version:   v.Version,
			ValidFrom: validFrom,
			Anexos:    make(map[string]domain.AnexoTable, len(v.Anexos)),
			IRRF:      v.IRRF,
			INSS:      v.INSS,
			Constants: v.Constants,
		}
		for name, brackets := range v.Anexos {
			ts.Anexos[name] = domain.AnexoTable{Name: name, Brackets: brackets}
		}

		if err := Validate(ts); err != nil {
			return nil, &domain.ErrConfiguration{Source: source, Reason: err.Error()}
		}
		sets = append(sets, ts)
	}

	sort.Slice(sets, func(i, j int) bool { return sets[i].ValidFrom.Before(sets[j].ValidFrom) })
	for i := 1; i < len(sets); i++ {
		if sets[i].ValidFrom.Equal(sets[i-1].ValidFrom) {
			return nil, &domain.ErrConfiguration{
				Source: source,
				Reason: fmt.Sprintf("versions %s and %s share valid_from %s", sets[i-1].Version, sets[i].Version, sets[i].ValidFrom.Format(domain.AsOfLayout)),
			}
		}
	}

	return sets, nil
}

// LoadDefault builds a repository from the embedded tables.
func LoadDefault() (*Repository, error) {
	return Load(defaultTables, SourceEmbedded)
}

// LoadFile builds a repository from a local YAML or JSON file.
func LoadFile(path string) (*Repository, error) {
	source := "file:" + path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ErrConfiguration{Source: source, Reason: err.Error()}
	}
	return Load(data, source)
}

// Load parses data and builds a repository stamped with the current time.
func Load(data []byte, source string) (*Repository, error) {
	sets, err := Parse(data, source)
	if err != nil {
		return nil, err
	}
	return NewRepository(sets, source, time.Now().UTC())
}
