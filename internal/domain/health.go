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
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// EngineMetrics is returned by GET /v1/metrics/engine.
type EngineMetrics struct {
	DashboardComputations int64   `json:"dashboardComputations"`
	ReportComputations    int64   `json:"reportComputations"`
	TransactionListings   int64   `json:"transactionListings"`
	FailedComputations    int64   `json:"failedComputations"`
	TransactionsScanned   int64   `json:"transactionsScanned"`
	StoreErrors           int64   `json:"storeErrors"`
	CategoryCacheHitRate  float64 `json:"categoryCacheHitRate"`
	ErrorRate             float64 `json:"errorRate"`
	Period                string  `json:"period"`
}
