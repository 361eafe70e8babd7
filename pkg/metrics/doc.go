// Package metrics defines the Prometheus metrics exposed by the scheduler:
// cluster state gauges (nodes/services/instances by status, total and
// utilized resources), pass counters and duration, and API request
// instrumentation. Collector samples repository state on a fixed tick;
// RecordClusterGauges is pushed once per pass from the scheduler driver.
// HealthChecker backs the /healthz endpoint; /readyz is served by pkg/api,
// which checks that the repository answers.
package metrics
