// Package resolvers implements the three-phase update resolver pipeline:
// nodes (C6), services (C7), and instances (C8). The scheduler driver
// (pkg/scheduler) runs them in that order on one loaded cluster.Snapshot
// per pass.
package resolvers

import (
	"github.com/cuemby/warren-scheduler/pkg/cluster"
	schederr "github.com/cuemby/warren-scheduler/pkg/scheduler/errors"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/rs/zerolog"
)

// ResolveNodes acts on every dirty node in two sub-passes: first it drains
// instances from FAILED or DELETED nodes, then it clears the dirty flag on
// ACTIVE nodes (no structural work). A dirty node left unclassified by
// both sub-passes fails the whole pass.
func ResolveNodes(snap *cluster.Snapshot, logger zerolog.Logger) error {
	var dirty []*types.Node
	for _, n := range snap.Nodes {
		if n.Dirty {
			dirty = append(dirty, n)
		}
	}

	resolved := make(map[string]bool, len(dirty))

	// Sub-pass 1: drain FAILED or DELETED nodes.
	for _, n := range dirty {
		if n.Status != types.NodeStatusFailed && n.Status != types.NodeStatusDeleted {
			continue
		}
		for _, inst := range snap.InstancesOf(n) {
			if inst.IsPlaced() {
				snap.EvictInstance(inst, n)
			}
		}
		n.InstanceIDs = nil
		n.Dirty = false
		resolved[n.ID] = true
		logger.Debug().Str("node_id", n.ID).Str("status", string(n.Status)).Msg("drained node")
	}

	// Sub-pass 2: ACTIVE nodes require no structural work.
	for _, n := range dirty {
		if resolved[n.ID] {
			continue
		}
		if n.Status != types.NodeStatusActive {
			continue
		}
		n.Dirty = false
		resolved[n.ID] = true
	}

	for _, n := range dirty {
		if !resolved[n.ID] {
			return schederr.NewScheduling("not all updated nodes resolved", nil)
		}
	}

	return nil
}
