package api

import (
	"net/http"

	"github.com/cuemby/warren-scheduler/pkg/metrics"
)

// HealthHandlerFunc implements /healthz: a liveness check that reports
// unhealthy if any registered component (storage, scheduler) has reported
// itself unhealthy.
func HealthHandlerFunc(w http.ResponseWriter, r *http.Request) {
	metrics.HealthHandler()(w, r)
}
