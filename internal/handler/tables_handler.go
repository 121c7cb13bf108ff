package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GET /tables/status
func tablesStatusHandler(svc *service.CompareService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.TablesStatus())
	}
}

// GET /tables/anexos/{anexo}/effective-rate?annual_revenue=&as_of=
func effectiveRateHandler(svc *service.CompareService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /tables/anexos/{anexo}/effective-rate")
		defer span.End()

		q := r.URL.Query()

		raw := strings.TrimSpace(q.Get("annual_revenue"))
		if raw == "" {
			handleServiceError(w, &domain.ErrDomain{Field: "annual_revenue", Message: "is required"}, logger)
			return
		}
		revenue, err := decimal.NewFromString(raw)
		if err != nil {
			handleServiceError(w, &domain.ErrDomain{Field: "annual_revenue", Message: "must be a number"}, logger)
			return
		}

		var asOf time.Time
		if v := q.Get("as_of"); v != "" {
			asOf, err = time.Parse(domain.AsOfLayout, v)
			if err != nil {
				handleServiceError(w, &domain.ErrDomain{Field: "as_of", Message: "must be a date in YYYY-MM-DD format"}, logger)
				return
			}
		}

		result, err := svc.EffectiveRate(ctx, chi.URLParam(r, "anexo"), revenue, asOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
