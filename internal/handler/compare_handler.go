package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/infra/observability"
	"github.com/boddenberg/pj-tributario-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// POST /compare
func compareHandler(svc *service.CompareService, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /compare")
		defer span.End()

		start := time.Now()
		defer func() {
			metrics.RecordRequestDuration("compare", time.Since(start))
		}()

		var req domain.CompareRequest
		if err := decodeStrict(w, r, &req); err != nil {
			failRequest(w, err, metrics, logger)
			return
		}
		profile, err := req.Validate()
		if err != nil {
			failRequest(w, err, metrics, logger)
			return
		}

		result, err := svc.Compute(ctx, profile)
		if err != nil {
			failRequest(w, err, metrics, logger)
			return
		}

		span.SetAttributes(
			attribute.String("simples.anexo", result.Simples.Anexo),
			attribute.String("tables.version", result.TablesUsed.Meta.Version),
		)
		logComputed(ctx, logger, "compare", result.TablesUsed.Meta.Version)
		metrics.IncrRequest("success")
		writeJSON(w, http.StatusOK, result)
	}
}

// POST /compare/scenarios
func compareScenariosHandler(svc *service.CompareService, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /compare/scenarios")
		defer span.End()

		start := time.Now()
		defer func() {
			metrics.RecordRequestDuration("compare_scenarios", time.Since(start))
		}()

		var req domain.ScenarioRequest
		if err := decodeStrict(w, r, &req); err != nil {
			failRequest(w, err, metrics, logger)
			return
		}
		base, a, b, err := req.Validate()
		if err != nil {
			failRequest(w, err, metrics, logger)
			return
		}

		result, err := svc.Compare(ctx, base, a, b)
		if err != nil {
			failRequest(w, err, metrics, logger)
			return
		}

		logComputed(ctx, logger, "compare_scenarios", result.TablesUsed.Version)
		metrics.IncrRequest("success")
		writeJSON(w, http.StatusOK, result)
	}
}

// logComputed records who asked for a computation. The subject is empty when
// the bearer gate is disabled.
func logComputed(ctx context.Context, logger *zap.Logger, operation, tablesVersion string) {
	subject := SubjectFromContext(ctx)
	if subject != "" {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("auth.subject", subject))
	}
	logger.Debug("comparison computed",
		zap.String("operation", operation),
		zap.String("subject", subject),
		zap.String("tables_version", tablesVersion),
	)
}
