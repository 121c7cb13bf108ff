package ratetable

import (
	"context"
	"fmt"

	"github.com/boddenberg/pj-tributario-go/internal/port"
)

// Source kinds, used as the table_loads metric label.
const (
	KindEmbedded = "embedded"
	KindFile     = "file"
	KindURL      = "url"
)

// RemoteSource is a fetcher that can name the document it downloads.
type RemoteSource interface {
	port.TablesFetcher
	Source() string
}

// Sources lists where tables may come from. Remote wins over File; with
// neither set the embedded tables are used.
type Sources struct {
	Remote RemoteSource
	File   string
}

// Open builds a repository from the highest priority configured source and
// reports which kind it used. Any failure is fatal for the caller: there is
// no silent fallback to a lower priority source.
func Open(ctx context.Context, src Sources) (*Repository, string, error) {
	switch {
	case src.Remote != nil:
		data, err := src.Remote.Fetch(ctx)
		if err != nil {
			return nil, KindURL, fmt.Errorf("fetch %s: %w", src.Remote.Source(), err)
		}
		repo, err := Load(data, src.Remote.Source())
		return repo, KindURL, err
	case src.File != "":
		repo, err := LoadFile(src.File)
		return repo, KindFile, err
	default:
		repo, err := LoadDefault()
		return repo, KindEmbedded, err
	}
}
