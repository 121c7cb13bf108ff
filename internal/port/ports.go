// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the concrete table repository, remote source and cache.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
)

// TablesProvider serves immutable rate table versions by reference date.
type TablesProvider interface {
	Get(asOf time.Time) (domain.TableSet, error)
	Meta(ts domain.TableSet) domain.TablesMeta
	Status() domain.TablesStatus
}

// TablesFetcher downloads a raw table document from a remote source.
type TablesFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
