// Package cluster implements the in-memory cluster snapshot (C4) and the
// preemption selectors (C5): the working set a scheduler pass loads,
// mutates, and commits back through the Repository port.
package cluster

import (
	"fmt"

	"github.com/cuemby/warren-scheduler/pkg/resource"
	schederr "github.com/cuemby/warren-scheduler/pkg/scheduler/errors"
	"github.com/cuemby/warren-scheduler/pkg/schedulerlog"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Snapshot is the exclusive in-memory owner of nodes, services, and
// service instances for the duration of one pass. Back-links
// (Service.InstanceID, Node.InstanceIDs) are derived at load time by
// scanning instances; they are never persisted independently.
type Snapshot struct {
	Nodes     []*types.Node
	Services  []*types.Service
	Instances []*types.ServiceInstance

	nodesByID     map[string]*types.Node
	servicesByID  map[string]*types.Service
	instancesByID map[string]*types.ServiceInstance

	repo    storage.Repository
	Metrics *schedulerlog.Metrics
	logger  zerolog.Logger
}

// Load builds a Snapshot from the repository. Load order is significant:
// instances first, then services (so each service's InstanceID back-link
// can be populated from instances pointing at it), then nodes (so each
// node's InstanceIDs back-link can be populated the same way).
func Load(repo storage.Repository, logger zerolog.Logger) (*Snapshot, error) {
	s := &Snapshot{
		repo:    repo,
		Metrics: schedulerlog.NewMetrics(),
		logger:  logger,
	}

	instances, err := repo.ListServiceInstances()
	if err != nil {
		return nil, fmt.Errorf("load service instances: %w", err)
	}
	s.Instances = instances
	s.instancesByID = make(map[string]*types.ServiceInstance, len(instances))
	for _, inst := range instances {
		s.instancesByID[inst.ID] = inst
	}

	services, err := repo.ListServices()
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	s.Services = services
	s.servicesByID = make(map[string]*types.Service, len(services))
	for _, svc := range services {
		s.servicesByID[svc.ID] = svc
	}
	for _, inst := range instances {
		if svc, ok := s.servicesByID[inst.ServiceID]; ok {
			id := inst.ID
			svc.InstanceID = &id
		}
	}

	nodes, err := repo.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	s.Nodes = nodes
	s.nodesByID = make(map[string]*types.Node, len(nodes))
	for _, n := range nodes {
		n.InstanceIDs = nil
		s.nodesByID[n.ID] = n
	}
	for _, inst := range instances {
		if inst.NodeID == nil {
			continue
		}
		if n, ok := s.nodesByID[*inst.NodeID]; ok {
			n.InstanceIDs = append(n.InstanceIDs, inst.ID)
		}
	}

	return s, nil
}

// Commit writes back all nodes, services, and instances through the
// repository, in that order.
func (s *Snapshot) Commit() error {
	for _, n := range s.Nodes {
		if err := s.repo.UpdateNode(n); err != nil {
			return fmt.Errorf("commit node %s: %w", n.ID, err)
		}
	}
	for _, svc := range s.Services {
		if err := s.repo.UpdateService(svc); err != nil {
			return fmt.Errorf("commit service %s: %w", svc.ID, err)
		}
	}
	for _, inst := range s.Instances {
		if err := s.repo.UpdateServiceInstance(inst); err != nil {
			return fmt.Errorf("commit service instance %s: %w", inst.ID, err)
		}
	}
	return nil
}

// Node looks up a node by id within the snapshot.
func (s *Snapshot) Node(id string) (*types.Node, bool) {
	n, ok := s.nodesByID[id]
	return n, ok
}

// Service looks up a service by id within the snapshot.
func (s *Snapshot) Service(id string) (*types.Service, bool) {
	svc, ok := s.servicesByID[id]
	return svc, ok
}

// Instance looks up a service instance by id within the snapshot.
func (s *Snapshot) Instance(id string) (*types.ServiceInstance, bool) {
	inst, ok := s.instancesByID[id]
	return inst, ok
}

// InstancesOf returns the instances hosted by the given node, in node
// InstanceIDs order.
func (s *Snapshot) InstancesOf(node *types.Node) []*types.ServiceInstance {
	out := make([]*types.ServiceInstance, 0, len(node.InstanceIDs))
	for _, id := range node.InstanceIDs {
		if inst, ok := s.instancesByID[id]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// ActiveNodes returns nodes with status ACTIVE, in snapshot load order.
func (s *Snapshot) ActiveNodes() []*types.Node {
	var out []*types.Node
	for _, n := range s.Nodes {
		if n.Status == types.NodeStatusActive {
			out = append(out, n)
		}
	}
	return out
}

// CalculateAvailableResources sets AvailableResources on every node to
// node_resources minus the sum of allocated_resources across its hosted
// instances. It fails the whole pass with a Scheduling error if any node's
// available resources would go negative.
func (s *Snapshot) CalculateAvailableResources() error {
	for _, n := range s.Nodes {
		occupied := resource.Vector{}
		for _, inst := range s.InstancesOf(n) {
			if inst.AllocatedResources != nil {
				occupied = occupied.Add(*inst.AllocatedResources)
			}
		}
		if n.NodeResources == nil {
			continue
		}
		avail, err := n.NodeResources.Sub(occupied)
		if err != nil {
			return schederr.NewScheduling("available resources cannot be negative", err)
		}
		n.AvailableResources = &avail
	}
	return nil
}

// CreateInstance creates a fresh EVICTED instance for service, persists it
// to obtain an id, links it back to the service, and inserts it into the
// snapshot.
func (s *Snapshot) CreateInstance(service *types.Service) (*types.ServiceInstance, error) {
	inst := &types.ServiceInstance{
		ID:         uuid.New().String(),
		Executable: service.Executable,
		ServiceID:  service.ID,
		Status:     types.ServiceInstanceStatusEvicted,
		Dirty:      true,
	}
	if err := s.repo.CreateServiceInstance(inst); err != nil {
		return nil, fmt.Errorf("create service instance: %w", err)
	}
	id := inst.ID
	service.InstanceID = &id
	s.Instances = append(s.Instances, inst)
	s.instancesByID[inst.ID] = inst
	return inst, nil
}

// PlaceInstance places inst onto node with the given required allocation.
// Precondition: node.AvailableResources fits required. Deducts required
// from the node's available resources, appends inst to the node's
// InstanceIDs, and marks inst PLACED with a fresh execution/resource
// status. Increments the ALLOCATION counter.
func (s *Snapshot) PlaceInstance(inst *types.ServiceInstance, node *types.Node, required resource.Vector) error {
	if node.AvailableResources == nil || !node.AvailableResources.Fits(required) {
		return schederr.NewScheduling("insufficient available resources to place instance", nil)
	}
	remaining, err := node.AvailableResources.Sub(required)
	if err != nil {
		return schederr.NewScheduling("placement would underflow available resources", err)
	}
	node.AvailableResources = &remaining
	node.InstanceIDs = append(node.InstanceIDs, inst.ID)

	allocated := required.Clone()
	execStatus := types.ExecutionStatusUnknown
	resStatus := types.ResourceStatusOK
	nodeID := node.ID

	inst.AllocatedResources = &allocated
	inst.NodeID = &nodeID
	inst.Status = types.ServiceInstanceStatusPlaced
	inst.ExecutionStatus = &execStatus
	inst.ResourceStatus = &resStatus
	inst.Dirty = false

	s.Metrics.IncreaseAction(schedulerlog.ActionAllocation, 1)
	return nil
}

// EvictInstance evicts inst from node, returning its allocation to the
// node's available resources. If node is nil, the target node is resolved
// via inst.NodeID. Sets inst to EVICTED, marks it dirty, and increments the
// EVICTION counter (and FRAGILE_EVICTION if the owning service is FRAGILE).
func (s *Snapshot) EvictInstance(inst *types.ServiceInstance, node *types.Node) {
	if node == nil && inst.NodeID != nil {
		node, _ = s.Node(*inst.NodeID)
	}
	if node != nil {
		if node.AvailableResources != nil && inst.AllocatedResources != nil {
			sum := node.AvailableResources.Add(*inst.AllocatedResources)
			node.AvailableResources = &sum
		}
		filtered := node.InstanceIDs[:0]
		for _, id := range node.InstanceIDs {
			if id != inst.ID {
				filtered = append(filtered, id)
			}
		}
		node.InstanceIDs = filtered
	}

	s.Metrics.IncreaseAction(schedulerlog.ActionEviction, 1)
	if svc, ok := s.Service(inst.ServiceID); ok && svc.Type == types.ServiceTypeFragile {
		s.Metrics.IncreaseAction(schedulerlog.ActionFragileEvicted, 1)
	}

	inst.AllocatedResources = nil
	inst.NodeID = nil
	inst.Status = types.ServiceInstanceStatusEvicted
	inst.ExecutionStatus = nil
	inst.ResourceStatus = nil
	inst.Dirty = true
}

// ShrinkInstance computes allocated.Compliant(limit, nil) and, if that
// differs from the instance's current allocation, evicts then re-places
// the instance with the new, compliant allocation. A no-op if the
// allocation is already compliant.
func (s *Snapshot) ShrinkInstance(inst *types.ServiceInstance, limit resource.Vector) error {
	if inst.AllocatedResources == nil {
		return nil
	}
	newAllocated := inst.AllocatedResources.Compliant(limit, resource.Vector{})
	if newAllocated.Equal(*inst.AllocatedResources) {
		return nil
	}

	var node *types.Node
	if inst.NodeID != nil {
		node, _ = s.Node(*inst.NodeID)
	}
	s.EvictInstance(inst, node)
	return s.PlaceInstance(inst, node, newAllocated)
}

// AttemptToAcquire asks whether node can be made to fit required, possibly
// by preempting instances selector(forService, other) allows evicting. If
// node.AvailableResources already fits required, returns (nil, true) — no
// eviction needed. Otherwise it walks the node's hosted instances in
// order, filtering to those whose owning service selector approves
// preempting, and accumulates their allocated resources; the first prefix
// whose return-to-pool makes the node fit required is returned as the
// victim list. If no prefix suffices, returns (nil, false).
func (s *Snapshot) AttemptToAcquire(node *types.Node, required resource.Vector, forService *types.Service, selector Selector) ([]*types.ServiceInstance, bool) {
	if node.AvailableResources == nil {
		return nil, false
	}
	if node.AvailableResources.Fits(required) {
		return nil, true
	}

	var evictable []*types.ServiceInstance
	for _, inst := range s.InstancesOf(node) {
		other, ok := s.Service(inst.ServiceID)
		if !ok {
			continue
		}
		if selector(forService, other) {
			evictable = append(evictable, inst)
		}
	}
	if len(evictable) == 0 {
		return nil, false
	}

	sum := *node.AvailableResources
	for i, inst := range evictable {
		if inst.AllocatedResources != nil {
			sum = sum.Add(*inst.AllocatedResources)
		}
		if sum.Fits(required) {
			return evictable[:i+1], true
		}
	}
	return nil, false
}
