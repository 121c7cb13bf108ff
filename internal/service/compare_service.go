package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/engine"
	"github.com/boddenberg/pj-tributario-go/internal/infra/observability"
	"github.com/boddenberg/pj-tributario-go/internal/infra/resilience"
	"github.com/boddenberg/pj-tributario-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/compare")

const resultCache = "result"

// CompareService resolves the table version for a request and runs the
// engine, memoizing results per table version and normalized profile.
type CompareService struct {
	tables   port.TablesProvider
	cache    port.Cache[*domain.ComputationResult]
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewCompareService creates the service with all dependencies injected.
// A nil bulkhead leaves computations unbounded.
func NewCompareService(
	tables port.TablesProvider,
	cache port.Cache[*domain.ComputationResult],
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CompareService {
	return &CompareService{
		tables:   tables,
		cache:    cache,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the clock used when a request carries no as_of.
func (s *CompareService) WithClock(now func() time.Time) *CompareService {
	s.now = now
	return s
}

// Compute evaluates one profile against the table version in force on its
// as_of date (today when absent).
func (s *CompareService) Compute(ctx context.Context, p domain.CompanyProfile) (*domain.ComputationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "CompareService.Compute")
	defer span.End()

	asOf, err := p.AsOfDate(s.now())
	if err != nil {
		return nil, err
	}
	ts, err := s.tables.Get(asOf)
	if err != nil {
		return nil, fmt.Errorf("resolve tables: %w", err)
	}
	span.SetAttributes(
		attribute.String("tables.version", ts.Version),
		attribute.String("profile.atividade", string(p.Atividade)),
	)

	key := ts.Version + "|" + p.CacheKey()
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit(resultCache)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		// Same numbers, but echo this request's own inputs (as_of may differ).
		r := *cached
		r.Inputs = p
		return &r, nil
	}
	s.metrics.IncrCacheMiss(resultCache)

	var result *domain.ComputationResult
	run := func() error {
		start := time.Now()
		defer func() {
			s.metrics.RecordRequestDuration("compute", time.Since(start))
		}()

		var err error
		result, err = engine.Compute(ts, s.tables.Meta(ts), p)
		return err
	}
	if s.bulkhead != nil {
		err = s.bulkhead.Do(ctx, run)
	} else {
		err = run()
	}
	if err != nil {
		s.logger.Debug("computation rejected",
			zap.String("tables_version", ts.Version),
			zap.Error(err),
		)
		return nil, err
	}

	s.cache.Set(key, result)
	s.metrics.IncrComputation(result.Simples.Anexo)
	span.SetAttributes(attribute.String("simples.anexo", result.Simples.Anexo))

	return result, nil
}

// Compare evaluates two scenarios that differ only in pró-labore. Both run
// concurrently and share nothing mutable, so swapping A and B swaps the
// results and nothing else.
func (s *CompareService) Compare(ctx context.Context, base domain.CompanyProfile, proLaboreA, proLaboreB decimal.Decimal) (*domain.ScenarioComparison, error) {
	ctx, span := tracer.Start(ctx, "CompareService.Compare")
	defer span.End()

	var a, b *domain.ComputationResult

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := s.Compute(gCtx, base.WithProLabore(proLaboreA))
		if err != nil {
			return fmt.Errorf("scenario a: %w", err)
		}
		a = r
		return nil
	})

	g.Go(func() error {
		r, err := s.Compute(gCtx, base.WithProLabore(proLaboreB))
		if err != nil {
			return fmt.Errorf("scenario b: %w", err)
		}
		b = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.ScenarioComparison{
		ScenarioA:  a,
		ScenarioB:  b,
		TablesUsed: a.TablesUsed.Meta,
	}, nil
}

// EffectiveRate evaluates one Anexo for display. asOf zero means today.
func (s *CompareService) EffectiveRate(ctx context.Context, anexo string, annualRevenue decimal.Decimal, asOf time.Time) (*domain.EffectiveRateResult, error) {
	_, span := tracer.Start(ctx, "CompareService.EffectiveRate")
	defer span.End()

	if asOf.IsZero() {
		asOf = s.now()
	}
	ts, err := s.tables.Get(asOf)
	if err != nil {
		return nil, fmt.Errorf("resolve tables: %w", err)
	}

	name := strings.ToUpper(strings.TrimSpace(anexo))
	table, ok := ts.Anexo(name)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "anexo", ID: anexo}
	}
	span.SetAttributes(attribute.String("simples.anexo", name))

	ev, err := engine.EffectiveRate(table, annualRevenue)
	if err != nil {
		return nil, err
	}

	return &domain.EffectiveRateResult{
		Anexo:         name,
		AnnualRevenue: annualRevenue,
		Faixa:         ev.BracketIndex + 1,
		Aliquota:      ev.Rate,
		Deduz:         ev.Deduction,
		EffectiveRate: ev.EffectiveRate.Round(6),
		TablesVersion: ts.Version,
	}, nil
}

// TablesStatus reports the loaded table versions.
func (s *CompareService) TablesStatus() domain.TablesStatus {
	return s.tables.Status()
}
