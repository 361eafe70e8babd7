package resolvers

import (
	"github.com/cuemby/warren-scheduler/pkg/cluster"
	"github.com/cuemby/warren-scheduler/pkg/resource"
	"github.com/cuemby/warren-scheduler/pkg/schedulerlog"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/rs/zerolog"
)

// ResolveInstances is the instance update resolver (C8). It first
// recomputes available resources across the snapshot, then walks dirty
// instances in two disjoint sub-passes partitioned by each instance's
// status at entry: PLACED instances attempt a resource-pressure grow (in
// place, then by migration) followed by a shrink-to-limit; EVICTED
// instances whose service is ACTIVE attempt placement, without then with
// preemption. An instance considered by one sub-pass is never
// reconsidered by the other in the same run.
func ResolveInstances(snap *cluster.Snapshot, logger zerolog.Logger) error {
	if err := snap.CalculateAvailableResources(); err != nil {
		return err
	}

	var placedDirty, evictedDirty []*types.ServiceInstance
	for _, inst := range snap.Instances {
		if !inst.Dirty {
			continue
		}
		switch inst.Status {
		case types.ServiceInstanceStatusPlaced:
			placedDirty = append(placedDirty, inst)
		case types.ServiceInstanceStatusEvicted:
			evictedDirty = append(evictedDirty, inst)
		}
	}

	for _, inst := range placedDirty {
		resolvePlacedInstance(snap, inst, logger)
	}

	residual := 0
	for _, inst := range evictedDirty {
		if resolveEvictedInstance(snap, inst, logger) {
			continue
		}
		residual++
	}
	snap.Metrics.IncreaseObject(schedulerlog.ObjectEvicted, residual)

	return nil
}

// resolvePlacedInstance implements sub-pass A.
func resolvePlacedInstance(snap *cluster.Snapshot, inst *types.ServiceInstance, logger zerolog.Logger) {
	service, ok := snap.Service(inst.ServiceID)
	if !ok {
		inst.Dirty = false
		return
	}

	if inst.ResourceStatus != nil && *inst.ResourceStatus != types.ResourceStatusOK {
		attemptGrow(snap, inst, service, logger)
	}

	if service.ResourceLimit != nil {
		if err := snap.ShrinkInstance(inst, *service.ResourceLimit); err != nil {
			logger.Warn().Err(err).Str("instance_id", inst.ID).Msg("shrink to limit failed")
		}
	}

	inst.Dirty = false
}

// attemptGrow tries to grow inst's allocation on its constrained dimension,
// first in place, then by migrating to another active node. Leaves the
// instance unchanged if neither succeeds.
func attemptGrow(snap *cluster.Snapshot, inst *types.ServiceInstance, service *types.Service, logger zerolog.Logger) {
	if inst.AllocatedResources == nil || inst.NodeID == nil {
		return
	}
	grown := growBy(*inst.AllocatedResources, service.ResourceLimit, *inst.ResourceStatus)

	currentNode, ok := snap.Node(*inst.NodeID)
	if !ok {
		return
	}
	delta, err := grown.Sub(*inst.AllocatedResources)
	if err != nil {
		return
	}

	// Grow in place.
	if victims, can := snap.AttemptToAcquire(currentNode, delta, service, cluster.SameOrLowerTypeWithLowerPriority); can {
		for _, victim := range victims {
			snap.EvictInstance(victim, currentNode)
		}
		remaining, err := currentNode.AvailableResources.Sub(delta)
		if err == nil {
			currentNode.AvailableResources = &remaining
		}
		inst.AllocatedResources = &grown
		ok := types.ResourceStatusOK
		inst.ResourceStatus = &ok
		logger.Debug().Str("instance_id", inst.ID).Msg("grew instance in place")
		return
	}

	// Grow by migration.
	for _, node := range snap.ActiveNodes() {
		if node.ID == currentNode.ID {
			continue
		}
		victims, can := snap.AttemptToAcquire(node, grown, service, cluster.SameOrLowerTypeWithLowerPriority)
		if !can {
			continue
		}
		for _, victim := range victims {
			snap.EvictInstance(victim, node)
		}
		snap.EvictInstance(inst, currentNode)
		if err := snap.PlaceInstance(inst, node, grown); err != nil {
			logger.Warn().Err(err).Str("instance_id", inst.ID).Msg("migration placement failed after eviction")
			return
		}
		ok := types.ResourceStatusOK
		inst.ResourceStatus = &ok
		logger.Debug().Str("instance_id", inst.ID).Str("node_id", node.ID).Msg("grew instance by migration")
		return
	}
}

// growBy computes allocated with dim increased by its step, capped at the
// service's limit for that dimension (or uncapped if the limit component is
// unset).
func growBy(allocated resource.Vector, limit *resource.Vector, dim types.ResourceStatus) resource.Vector {
	out := allocated.Clone()
	switch dim {
	case types.ResourceStatusCPU:
		if out.CPU == nil {
			return out
		}
		v := *out.CPU + resource.CPUStep
		if limit != nil && limit.CPU != nil && v > *limit.CPU {
			v = *limit.CPU
		}
		*out.CPU = v
	case types.ResourceStatusRAM:
		if out.RAM == nil {
			return out
		}
		v := *out.RAM + resource.RAMStep
		if limit != nil && limit.RAM != nil && v > *limit.RAM {
			v = *limit.RAM
		}
		*out.RAM = v
	case types.ResourceStatusDisk:
		if out.Disk == nil {
			return out
		}
		v := *out.Disk + resource.DiskStep
		if limit != nil && limit.Disk != nil && v > *limit.Disk {
			v = *limit.Disk
		}
		*out.Disk = v
	}
	return out
}

// resolveEvictedInstance implements sub-pass B. It returns true if the
// instance was placed.
func resolveEvictedInstance(snap *cluster.Snapshot, inst *types.ServiceInstance, logger zerolog.Logger) bool {
	service, ok := snap.Service(inst.ServiceID)
	if !ok || service.Status != types.ServiceStatusActive || service.ResourceLimit == nil {
		inst.Dirty = false
		return false
	}

	floor := resource.Vector{}
	if service.ResourceFloor != nil {
		floor = *service.ResourceFloor
	}
	required := resource.BaseAllocated.Compliant(*service.ResourceLimit, floor)

	// No-eviction pass.
	for _, node := range snap.ActiveNodes() {
		if node.AvailableResources == nil || !node.AvailableResources.Fits(required) {
			continue
		}
		if err := snap.PlaceInstance(inst, node, required); err != nil {
			continue
		}
		inst.Dirty = false
		logger.Debug().Str("instance_id", inst.ID).Str("node_id", node.ID).Msg("placed instance without eviction")
		return true
	}

	// With-eviction pass.
	for _, node := range snap.ActiveNodes() {
		victims, can := snap.AttemptToAcquire(node, required, service, cluster.SameOrLowerTypeWithLowerPriority)
		if !can {
			continue
		}
		for _, victim := range victims {
			snap.EvictInstance(victim, node)
		}
		if err := snap.PlaceInstance(inst, node, required); err != nil {
			logger.Warn().Err(err).Str("instance_id", inst.ID).Msg("placement after preemption failed")
			continue
		}
		inst.Dirty = false
		logger.Debug().Str("instance_id", inst.ID).Str("node_id", node.ID).Msg("placed instance with preemption")
		return true
	}

	inst.Dirty = false
	return false
}
