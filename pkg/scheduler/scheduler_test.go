package scheduler

import (
	"testing"
	"time"

	"github.com/cuemby/warren-scheduler/pkg/resource"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/google/uuid"
)

func newTestRepo(t *testing.T) storage.Repository {
	t.Helper()
	repo, err := storage.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRunPassOnEmptyClusterSucceeds(t *testing.T) {
	repo := newTestRepo(t)
	sched := New(repo, time.Hour)
	if err := sched.RunPass(); err != nil {
		t.Fatalf("expected empty cluster pass to succeed, got %v", err)
	}

	logs, err := repo.ListSchedulerLogsSince(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 scheduler log entry, got %d", len(logs))
	}
}

func TestRunPassPlacesEvictedInstanceOnActiveNode(t *testing.T) {
	repo := newTestRepo(t)

	nodeRes := resource.New(4, 4<<30, 4<<30)
	node := &types.Node{ID: uuid.New().String(), Status: types.NodeStatusActive, NodeResources: &nodeRes}
	if err := repo.CreateNode(node); err != nil {
		t.Fatalf("create node: %v", err)
	}

	limit := resource.New(1, 1<<30, 1<<30)
	svc := &types.Service{ID: uuid.New().String(), Status: types.ServiceStatusActive, Priority: 50, ResourceLimit: &limit, Dirty: true}
	if err := repo.CreateService(svc); err != nil {
		t.Fatalf("create service: %v", err)
	}

	sched := New(repo, time.Hour)
	if err := sched.RunPass(); err != nil {
		t.Fatalf("pass 1: %v", err)
	}
	// A second pass should be idempotent: a placed instance stays placed.
	if err := sched.RunPass(); err != nil {
		t.Fatalf("pass 2: %v", err)
	}

	instances, err := repo.ListServiceInstances()
	if err != nil {
		t.Fatalf("list instances: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("expected exactly one instance to be created for the service, got %d", len(instances))
	}
	if !instances[0].IsPlaced() {
		t.Fatalf("expected instance to be placed, got status %v", instances[0].Status)
	}
	if instances[0].NodeID == nil || *instances[0].NodeID != node.ID {
		t.Fatalf("expected instance placed on %s, got %+v", node.ID, instances[0].NodeID)
	}
}

func TestRunPassSerializesConcurrentCallers(t *testing.T) {
	repo := newTestRepo(t)
	sched := New(repo, time.Hour)

	done := make(chan error, 2)
	go func() { done <- sched.RunPass() }()
	go func() { done <- sched.RunPass() }()

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent pass failed: %v", err)
		}
	}
}
