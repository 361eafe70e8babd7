package resolvers

import (
	"github.com/cuemby/warren-scheduler/pkg/cluster"
	schederr "github.com/cuemby/warren-scheduler/pkg/scheduler/errors"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/rs/zerolog"
)

// ResolveServices acts on every dirty service in two sub-passes: first it
// evicts the PLACED instance (if any) of every DELETED service, then it
// creates a fresh EVICTED instance for any ACTIVE service that has none.
// A dirty service left unclassified by both sub-passes fails the whole
// pass.
func ResolveServices(snap *cluster.Snapshot, logger zerolog.Logger) error {
	var dirty []*types.Service
	for _, svc := range snap.Services {
		if svc.Dirty {
			dirty = append(dirty, svc)
		}
	}

	resolved := make(map[string]bool, len(dirty))

	// Sub-pass 1: DELETED services must not keep a PLACED instance. The
	// instance itself stays EVICTED; cleaning it up further is a later
	// policy step this resolver does not implement.
	for _, svc := range dirty {
		if svc.Status != types.ServiceStatusDeleted {
			continue
		}
		if svc.InstanceID != nil {
			if inst, ok := snap.Instance(*svc.InstanceID); ok && inst.IsPlaced() {
				snap.EvictInstance(inst, nil)
			}
		}
		svc.Dirty = false
		resolved[svc.ID] = true
	}

	// Sub-pass 2: ACTIVE services must have an instance.
	for _, svc := range dirty {
		if resolved[svc.ID] {
			continue
		}
		if svc.Status != types.ServiceStatusActive {
			continue
		}
		if svc.InstanceID == nil {
			inst, err := snap.CreateInstance(svc)
			if err != nil {
				return err
			}
			logger.Debug().Str("service_id", svc.ID).Str("instance_id", inst.ID).Msg("created instance for service with none")
		}
		svc.Dirty = false
		resolved[svc.ID] = true
	}

	for _, svc := range dirty {
		if !resolved[svc.ID] {
			return schederr.NewScheduling("not all updated services resolved", nil)
		}
	}

	return nil
}
