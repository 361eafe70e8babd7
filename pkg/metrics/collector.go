package metrics

import (
	"time"

	"github.com/cuemby/warren-scheduler/pkg/storage"
)

// Collector periodically samples cluster state gauges from the repository,
// independent of pass execution. It exists so NodesTotal/ServicesTotal/
// InstancesTotal stay current even during long gaps between passes.
type Collector struct {
	repo   storage.Repository
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(repo storage.Repository) *Collector {
	return &Collector{
		repo:   repo,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15 second tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectServiceMetrics()
	c.collectInstanceMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes, err := c.repo.ListNodes()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, n := range nodes {
		counts[string(n.Status)]++
	}
	for status, count := range counts {
		NodesTotal.WithLabelValues(status).Set(float64(count))
	}
}

func (c *Collector) collectServiceMetrics() {
	services, err := c.repo.ListServices()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, s := range services {
		counts[string(s.Status)]++
	}
	for status, count := range counts {
		ServicesTotal.WithLabelValues(status).Set(float64(count))
	}
}

func (c *Collector) collectInstanceMetrics() {
	instances, err := c.repo.ListServiceInstances()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, i := range instances {
		counts[string(i.Status)]++
	}
	for status, count := range counts {
		InstancesTotal.WithLabelValues(status).Set(float64(count))
	}
}
