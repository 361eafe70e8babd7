package metrics

import (
	"testing"

	"github.com/cuemby/warren-scheduler/pkg/resource"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCollectSetsNodeGauge(t *testing.T) {
	repo, err := storage.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer repo.Close()

	nodeRes := resource.New(1, 1<<30, 1<<30)
	if err := repo.CreateNode(&types.Node{ID: uuid.New().String(), Status: types.NodeStatusActive, NodeResources: &nodeRes}); err != nil {
		t.Fatalf("create node: %v", err)
	}

	c := NewCollector(repo)
	c.collect()

	got := testutil.ToFloat64(NodesTotal.WithLabelValues(string(types.NodeStatusActive)))
	if got < 1 {
		t.Errorf("expected NodesTotal{status=ACTIVE} >= 1, got %v", got)
	}
}
