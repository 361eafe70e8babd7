package cluster

import (
	"testing"

	"github.com/cuemby/warren-scheduler/pkg/resource"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
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

func TestSnapshotLoadLinksBackReferences(t *testing.T) {
	repo := newTestRepo(t)

	node := &types.Node{ID: uuid.New().String(), Status: types.NodeStatusActive, NodeResources: ptrVec(resource.New(4, 4<<30, 4<<30))}
	if err := repo.CreateNode(node); err != nil {
		t.Fatalf("create node: %v", err)
	}
	svc := &types.Service{ID: uuid.New().String(), Status: types.ServiceStatusActive, ResourceLimit: ptrVec(resource.New(1, 1<<30, 1<<30))}
	if err := repo.CreateService(svc); err != nil {
		t.Fatalf("create service: %v", err)
	}
	nodeID := node.ID
	allocated := resource.New(1, 1<<30, 1<<30)
	inst := &types.ServiceInstance{ID: uuid.New().String(), ServiceID: svc.ID, NodeID: &nodeID, Status: types.ServiceInstanceStatusPlaced, AllocatedResources: &allocated}
	if err := repo.CreateServiceInstance(inst); err != nil {
		t.Fatalf("create instance: %v", err)
	}

	snap, err := Load(repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	loadedSvc, ok := snap.Service(svc.ID)
	if !ok || loadedSvc.InstanceID == nil || *loadedSvc.InstanceID != inst.ID {
		t.Fatalf("expected service back-link to instance, got %+v", loadedSvc)
	}
	loadedNode, ok := snap.Node(node.ID)
	if !ok || len(loadedNode.InstanceIDs) != 1 || loadedNode.InstanceIDs[0] != inst.ID {
		t.Fatalf("expected node back-link to instance, got %+v", loadedNode)
	}
}

func TestCalculateAvailableResourcesSubtractsOccupied(t *testing.T) {
	repo := newTestRepo(t)
	node := &types.Node{ID: uuid.New().String(), Status: types.NodeStatusActive, NodeResources: ptrVec(resource.New(4, 4<<30, 4<<30))}
	repo.CreateNode(node)
	svc := &types.Service{ID: uuid.New().String(), Status: types.ServiceStatusActive}
	repo.CreateService(svc)
	nodeID := node.ID
	allocated := resource.New(1, 1<<30, 1<<30)
	inst := &types.ServiceInstance{ID: uuid.New().String(), ServiceID: svc.ID, NodeID: &nodeID, Status: types.ServiceInstanceStatusPlaced, AllocatedResources: &allocated}
	repo.CreateServiceInstance(inst)

	snap, err := Load(repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := snap.CalculateAvailableResources(); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	loaded, _ := snap.Node(node.ID)
	if *loaded.AvailableResources.CPU != 3.0 {
		t.Errorf("expected 3.0 cpu available, got %v", *loaded.AvailableResources.CPU)
	}
}

func TestPlaceAndEvictInstance(t *testing.T) {
	repo := newTestRepo(t)
	node := &types.Node{ID: uuid.New().String(), Status: types.NodeStatusActive, NodeResources: ptrVec(resource.New(4, 4<<30, 4<<30))}
	repo.CreateNode(node)
	svc := &types.Service{ID: uuid.New().String(), Status: types.ServiceStatusActive}
	repo.CreateService(svc)

	snap, err := Load(repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := snap.CalculateAvailableResources(); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	svcInSnap, _ := snap.Service(svc.ID)
	inst, err := snap.CreateInstance(svcInSnap)
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	nodeInSnap, _ := snap.Node(node.ID)

	required := resource.New(1, 1<<30, 1<<30)
	if err := snap.PlaceInstance(inst, nodeInSnap, required); err != nil {
		t.Fatalf("place: %v", err)
	}
	if !inst.IsPlaced() {
		t.Fatal("expected instance to be placed")
	}
	if *nodeInSnap.AvailableResources.CPU != 3.0 {
		t.Errorf("expected 3.0 available after placement, got %v", *nodeInSnap.AvailableResources.CPU)
	}

	snap.EvictInstance(inst, nodeInSnap)
	if inst.Status != types.ServiceInstanceStatusEvicted {
		t.Errorf("expected evicted status, got %v", inst.Status)
	}
	if *nodeInSnap.AvailableResources.CPU != 4.0 {
		t.Errorf("expected resources returned to pool, got %v", *nodeInSnap.AvailableResources.CPU)
	}
}

func TestPlaceInstanceFailsWhenInsufficientResources(t *testing.T) {
	repo := newTestRepo(t)
	node := &types.Node{ID: uuid.New().String(), Status: types.NodeStatusActive, NodeResources: ptrVec(resource.New(1, 1<<30, 1<<30))}
	repo.CreateNode(node)
	svc := &types.Service{ID: uuid.New().String(), Status: types.ServiceStatusActive}
	repo.CreateService(svc)

	snap, _ := Load(repo, zerolog.Nop())
	snap.CalculateAvailableResources()
	svcInSnap, _ := snap.Service(svc.ID)
	inst, _ := snap.CreateInstance(svcInSnap)
	nodeInSnap, _ := snap.Node(node.ID)

	required := resource.New(2, 2<<30, 2<<30)
	if err := snap.PlaceInstance(inst, nodeInSnap, required); err == nil {
		t.Fatal("expected placement to fail when resources are insufficient")
	}
}

func ptrVec(v resource.Vector) *resource.Vector { return &v }
