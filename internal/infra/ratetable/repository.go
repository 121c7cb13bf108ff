package ratetable

import (
	"fmt"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"

	"github.com/google/uuid"
)

// Repository serves immutable table versions. Safe for concurrent use: its
// state is fixed at construction and every read returns a deep copy.
type Repository struct {
	versions   []domain.TableSet // ordered by ValidFrom
	source     string
	loadedAt   time.Time
	snapshotID string
}

// NewRepository validates sets and wraps them. sets must be ordered by
// ValidFrom, as Parse returns them.
func NewRepository(sets []domain.TableSet, source string, loadedAt time.Time) (*Repository, error) {
	if len(sets) == 0 {
		return nil, &domain.ErrConfiguration{Source: source, Reason: "no table versions defined"}
	}
	versions := make([]domain.TableSet, len(sets))
	for i, ts := range sets {
		if err := Validate(ts); err != nil {
			return nil, &domain.ErrConfiguration{Source: source, Reason: err.Error()}
		}
		if i > 0 && !ts.ValidFrom.After(sets[i-1].ValidFrom) {
			return nil, &domain.ErrConfiguration{Source: source, Reason: fmt.Sprintf("version %s is out of valid_from order", ts.Version)}
		}
		versions[i] = ts.Clone()
	}
	return &Repository{
		versions:   versions,
		source:     source,
		loadedAt:   loadedAt,
		snapshotID: uuid.New().String(),
	}, nil
}

// Get returns a copy of the latest version whose valid_from is on or before asOf.
func (r *Repository) Get(asOf time.Time) (domain.TableSet, error) {
	for i := len(r.versions) - 1; i >= 0; i-- {
		if !r.versions[i].ValidFrom.After(asOf) {
			return r.versions[i].Clone(), nil
		}
	}
	return domain.TableSet{}, &domain.ErrNotFound{Resource: "rate table version", ID: asOf.Format(domain.AsOfLayout)}
}

// Meta describes ts as served by this repository.
func (r *Repository) Meta(ts domain.TableSet) domain.TablesMeta {
	return domain.TablesMeta{
		Source:     r.source,
		LoadedAt:   r.loadedAt.Format(time.RFC3339),
		Version:    ts.Version,
		ValidFrom:  ts.ValidFrom.Format(domain.AsOfLayout),
		SnapshotID: r.snapshotID,
	}
}

// Status reports the loaded versions for GET /tables/status.
func (r *Repository) Status() domain.TablesStatus {
	st := domain.TablesStatus{
		Source:     r.source,
		LoadedAt:   r.loadedAt.Format(time.RFC3339),
		SnapshotID: r.snapshotID,
		Versions:   make([]domain.TableVersionStatus, 0, len(r.versions)),
	}
	for _, v := range r.versions {
		st.Versions = append(st.Versions, domain.TableVersionStatus{
			Version:   v.Version,
			ValidFrom: v.ValidFrom.Format(domain.AsOfLayout),
		})
	}
	return st
}
