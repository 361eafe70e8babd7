// Package scheduler implements the scheduler driver (C9): it orchestrates
// one pass — load, resolve, commit — times it, and appends a metrics
// record. Passes are triggered by the Scheduler's own ticker or by a direct
// RunPass call (the `pass` command), and are serialized against each other.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/warren-scheduler/pkg/cluster"
	"github.com/cuemby/warren-scheduler/pkg/log"
	"github.com/cuemby/warren-scheduler/pkg/metrics"
	"github.com/cuemby/warren-scheduler/pkg/resolvers"
	schederr "github.com/cuemby/warren-scheduler/pkg/scheduler/errors"
	"github.com/cuemby/warren-scheduler/pkg/schedulerlog"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scheduler runs reconciliation passes against a Repository on an
// interval, and serializes them against ad-hoc callers of RunPass.
type Scheduler struct {
	repo     storage.Repository
	interval time.Duration
	logger   zerolog.Logger
	mu       sync.Mutex
	stopCh   chan struct{}
}

// New builds a Scheduler bound to repo, ticking every interval.
func New(repo storage.Repository, interval time.Duration) *Scheduler {
	return &Scheduler{
		repo:     repo,
		interval: interval,
		logger:   log.WithComponent("scheduler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the ticker-driven pass loop in a new goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop terminates the pass loop. It does not interrupt a pass in flight.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunPass(); err != nil {
				s.logger.Error().Err(err).Msg("scheduling pass failed")
			}
		case <-s.stopCh:
			return
		}
	}
}

// RunPass executes one reconciliation pass. Passes are serialized: a
// second call while one is in flight blocks until the first completes; it
// never runs concurrently with it. Load, resolve, and commit are not wrapped
// in one repository transaction: Commit writes each entity with its own
// repository call, so a commit that fails part-way leaves the earlier writes
// in place, and an instance created by the service resolver is persisted as
// soon as it is created, even if the pass later aborts. A pass that aborts
// before Commit writes nothing else. Metrics are finalized and the
// SchedulerLog record is appended only after Commit succeeds.
func (s *Scheduler) RunPass() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	timer := metrics.NewTimer()

	snap, err := cluster.Load(s.repo, s.logger)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if err := resolvers.ResolveNodes(snap, s.logger); err != nil {
		return s.abort(err)
	}
	if err := resolvers.ResolveServices(snap, s.logger); err != nil {
		return s.abort(err)
	}
	if err := resolvers.ResolveInstances(snap, s.logger); err != nil {
		return s.abort(err)
	}

	if err := snap.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	duration := time.Since(start)
	timer.ObserveDuration(metrics.PassDuration)

	entry := s.finalizeMetrics(snap, duration)
	if err := s.repo.AppendSchedulerLog(entry); err != nil {
		s.logger.Error().Err(err).Msg("failed to append scheduler log")
	}

	metrics.RecordClusterGauges(snap)

	log.WithPassID(entry.ID).Info().
		Dur("duration", duration).
		Int("allocations", entry.Metrics.ActionsCounter[schedulerlog.ActionAllocation]).
		Int("evictions", entry.Metrics.ActionsCounter[schedulerlog.ActionEviction]).
		Msg("pass completed")

	return nil
}

// abort wraps a resolver failure as a SchedulingError if it is not already
// one; the caller returns before Commit, and the metrics log is not
// written.
func (s *Scheduler) abort(err error) error {
	metrics.PassesTotal.WithLabelValues("aborted").Inc()
	if _, ok := err.(*schederr.Scheduling); ok {
		s.logger.Warn().Err(err).Msg("pass aborted")
		return err
	}
	wrapped := schederr.NewScheduling("pass aborted", err)
	s.logger.Warn().Err(wrapped).Msg("pass aborted")
	return wrapped
}

// finalizeMetrics computes cluster totals and utilization ratios outside
// the repository transaction and builds the SchedulerLog entry for this
// pass.
func (s *Scheduler) finalizeMetrics(snap *cluster.Snapshot, duration time.Duration) *schedulerlog.Log {
	m := snap.Metrics
	m.Duration = duration

	for _, n := range snap.ActiveNodes() {
		if n.NodeResources != nil {
			m.TotalClusterResources = m.TotalClusterResources.Add(*n.NodeResources)
		}
	}
	for _, inst := range snap.Instances {
		if inst.AllocatedResources != nil {
			m.UtilizedClusterResources = m.UtilizedClusterResources.Add(*inst.AllocatedResources)
		}
	}
	m.CalculateUtilization()

	for _, svc := range snap.Services {
		if svc.Status == types.ServiceStatusActive {
			m.IncreaseObject(schedulerlog.ObjectService, 1)
		}
	}
	m.IncreaseObject(schedulerlog.ObjectNode, len(snap.ActiveNodes()))

	return &schedulerlog.Log{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Metrics:   *m,
	}
}
