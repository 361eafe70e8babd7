package metrics

import (
	"net/http"
	"time"

	"github.com/cuemby/warren-scheduler/pkg/cluster"
	"github.com/cuemby/warren-scheduler/pkg/schedulerlog"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster state gauges
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_nodes_total",
			Help: "Total number of nodes by status",
		},
		[]string{"status"},
	)

	ServicesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_services_total",
			Help: "Total number of services by status",
		},
		[]string{"status"},
	)

	InstancesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_service_instances_total",
			Help: "Total number of service instances by status",
		},
		[]string{"status"},
	)

	// Cluster resource gauges, updated once per pass
	ClusterResourcesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_cluster_resources_total",
			Help: "Total cluster resources by dimension",
		},
		[]string{"dimension"},
	)

	ClusterResourcesUtilized = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_cluster_resources_utilized",
			Help: "Allocated cluster resources by dimension",
		},
		[]string{"dimension"},
	)

	ClusterUtilizationRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_cluster_utilization_ratio",
			Help: "Utilized/total ratio by dimension",
		},
		[]string{"dimension"},
	)

	// Pass metrics
	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warren_pass_duration_seconds",
			Help:    "Time taken to run one reconciliation pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warren_passes_total",
			Help: "Total number of reconciliation passes by outcome",
		},
		[]string{"outcome"},
	)

	// Scheduling action counters, incremented once per pass with the
	// pass's delta.
	AllocationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_allocations_total",
			Help: "Total number of instance placements",
		},
	)

	EvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_evictions_total",
			Help: "Total number of instance evictions",
		},
	)

	FragileEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_fragile_evictions_total",
			Help: "Total number of evictions of FRAGILE service instances",
		},
	)

	ResidualEvictedTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_residual_evicted",
			Help: "Number of EVICTED instances still unplaced at the end of the last pass",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warren_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warren_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(ServicesTotal)
	prometheus.MustRegister(InstancesTotal)
	prometheus.MustRegister(ClusterResourcesTotal)
	prometheus.MustRegister(ClusterResourcesUtilized)
	prometheus.MustRegister(ClusterUtilizationRatio)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(AllocationsTotal)
	prometheus.MustRegister(EvictionsTotal)
	prometheus.MustRegister(FragileEvictionsTotal)
	prometheus.MustRegister(ResidualEvictedTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// RecordClusterGauges pushes a snapshot's resource and state-count gauges
// after a pass commits. It is a point-in-time sample, not an accumulator:
// callers observe the cluster as it was left at the end of the pass.
func RecordClusterGauges(snap *cluster.Snapshot) {
	nodeCounts := map[types.NodeStatus]int{}
	for _, n := range snap.Nodes {
		nodeCounts[n.Status]++
	}
	for status, count := range nodeCounts {
		NodesTotal.WithLabelValues(string(status)).Set(float64(count))
	}

	svcCounts := map[types.ServiceStatus]int{}
	for _, s := range snap.Services {
		svcCounts[s.Status]++
	}
	for status, count := range svcCounts {
		ServicesTotal.WithLabelValues(string(status)).Set(float64(count))
	}

	instCounts := map[types.ServiceInstanceStatus]int{}
	for _, i := range snap.Instances {
		instCounts[i.Status]++
	}
	for status, count := range instCounts {
		InstancesTotal.WithLabelValues(string(status)).Set(float64(count))
	}

	m := snap.Metrics
	if m.TotalClusterResources.CPU != nil {
		ClusterResourcesTotal.WithLabelValues("cpu_cores").Set(*m.TotalClusterResources.CPU)
	}
	if m.TotalClusterResources.RAM != nil {
		ClusterResourcesTotal.WithLabelValues("ram").Set(float64(*m.TotalClusterResources.RAM))
	}
	if m.TotalClusterResources.Disk != nil {
		ClusterResourcesTotal.WithLabelValues("disk").Set(float64(*m.TotalClusterResources.Disk))
	}
	if m.UtilizedClusterResources.CPU != nil {
		ClusterResourcesUtilized.WithLabelValues("cpu_cores").Set(*m.UtilizedClusterResources.CPU)
	}
	if m.UtilizedClusterResources.RAM != nil {
		ClusterResourcesUtilized.WithLabelValues("ram").Set(float64(*m.UtilizedClusterResources.RAM))
	}
	if m.UtilizedClusterResources.Disk != nil {
		ClusterResourcesUtilized.WithLabelValues("disk").Set(float64(*m.UtilizedClusterResources.Disk))
	}
	if m.Utilization.CPU != nil {
		ClusterUtilizationRatio.WithLabelValues("cpu_cores").Set(*m.Utilization.CPU)
	}
	if m.Utilization.RAM != nil {
		ClusterUtilizationRatio.WithLabelValues("ram").Set(*m.Utilization.RAM)
	}
	if m.Utilization.Disk != nil {
		ClusterUtilizationRatio.WithLabelValues("disk").Set(*m.Utilization.Disk)
	}

	AllocationsTotal.Add(float64(m.ActionsCounter[schedulerlog.ActionAllocation]))
	EvictionsTotal.Add(float64(m.ActionsCounter[schedulerlog.ActionEviction]))
	FragileEvictionsTotal.Add(float64(m.ActionsCounter[schedulerlog.ActionFragileEvicted]))
	ResidualEvictedTotal.Set(float64(m.ObjectsCounter[schedulerlog.ObjectEvicted]))
	PassesTotal.WithLabelValues("success").Inc()
}
