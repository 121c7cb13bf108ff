package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// EngineMetrics is returned by GET /metrics/engine.
type EngineMetrics struct {
	TotalComputations   int64            `json:"totalComputations"`
	ComputationsByAnexo map[string]int64 `json:"computationsByAnexo"`
	AvgComputeMs        float64          `json:"avgComputeMs"`
	ValidationErrors    int64            `json:"validationErrors"`
	ValidationErrorRate float64          `json:"validationErrorRate"`
	CacheHitRate        float64          `json:"cacheHitRate"`
	TableLoads          int64            `json:"tableLoads"`
	Period              string           `json:"period"`
}

// IndexResponse is returned by GET /.
type IndexResponse struct {
	Message   string            `json:"message"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}
