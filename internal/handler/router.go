package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/infra/observability"
	"github.com/boddenberg/pj-tributario-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options configures the optional edges of the router.
type Options struct {
	// JWTSecret enables HS256 bearer authentication on /compare routes.
	JWTSecret string
	// CORSAllowedOrigins lists origins allowed by CORS; "*" allows any.
	CORSAllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.CompareService, metrics *observability.Metrics, logger *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(opts.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/", indexHandler())
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler(svc))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/metrics/engine", engineMetricsHandler(metrics))

	// --- Comparison ---
	r.Group(func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(JWTAuthMiddleware([]byte(opts.JWTSecret), logger))
		}
		r.Post("/compare", compareHandler(svc, metrics, logger))
		r.Post("/compare/scenarios", compareScenariosHandler(svc, metrics, logger))
	})

	// --- Rate tables ---
	r.Get("/tables/status", tablesStatusHandler(svc))
	r.Get("/tables/anexos/{anexo}/effective-rate", effectiveRateHandler(svc, logger))

	return r
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// ============================================================
// Probes & metrics
// ============================================================

func indexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.IndexResponse{
			Message: "Comparador Simples Nacional x Lucro Presumido",
			Status:  "ok",
			Endpoints: map[string]string{
				"POST /compare":                             "compara Simples Nacional e Lucro Presumido",
				"POST /compare/scenarios":                   "compara dois valores de pró-labore",
				"GET /tables/status":                        "versões das tabelas carregadas",
				"GET /tables/anexos/{anexo}/effective-rate": "alíquota efetiva de um anexo",
				"GET /healthz":                              "saúde do serviço",
				"GET /metrics":                              "métricas Prometheus",
				"GET /metrics/engine":                       "resumo das métricas do motor",
			},
		})
	}
}

func healthzHandler(svc *service.CompareService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "tributario-api", Status: "healthy", LastChecked: now},
		}

		if svc != nil {
			status := svc.TablesStatus()
			tables := domain.ServiceHealth{
				Name:        "rate-tables",
				Status:      "healthy",
				Detail:      status.Source,
				LastChecked: now,
			}
			if len(status.Versions) == 0 {
				tables.Status = "unhealthy"
			}
			services = append(services, tables)
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler(svc *service.CompareService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, http.StatusServiceUnavailable, "rate tables not loaded")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}
