// Package events implements the event ingress adaptor (C10): it translates
// node and service-instance events into entity mutations against the
// repository, setting the dirty flag so the next pass picks them up. REST
// (pkg/api) and gRPC (pkg/eventserver) both call into the same Ingress.
package events

import (
	"github.com/cuemby/warren-scheduler/pkg/log"
	schederr "github.com/cuemby/warren-scheduler/pkg/scheduler/errors"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
)

// NodeEvent carries an external report of a node's observed status.
type NodeEvent struct {
	NodeID        string
	UpdatedStatus types.NodeStatus
}

// InstanceEvent carries an external report of a service instance's
// execution or resource state.
type InstanceEvent struct {
	InstanceID      string
	ExecutionStatus *types.ExecutionStatus
	ResourceStatus  *types.ResourceStatus
}

// Ingress applies events directly against the repository, outside of any
// scheduler pass.
type Ingress struct {
	repo storage.Repository
}

// NewIngress builds an Ingress bound to repo.
func NewIngress(repo storage.Repository) *Ingress {
	return &Ingress{repo: repo}
}

// ApplyNodeEvent updates a node's status from an external report. It is
// rejected with Forbidden if the node is DELETED, since a deleted node is
// not expected to report further state.
func (i *Ingress) ApplyNodeEvent(ev NodeEvent) error {
	node, err := i.repo.GetNode(ev.NodeID)
	if err != nil {
		return &schederr.NotFound{Kind: "node", ID: ev.NodeID}
	}
	if node.Status == types.NodeStatusDeleted {
		return &schederr.Forbidden{Reason: "node is deleted"}
	}

	node.Status = ev.UpdatedStatus
	node.Dirty = true
	if err := i.repo.UpdateNode(node); err != nil {
		return err
	}
	log.WithNodeID(node.ID).Debug().Str("status", string(ev.UpdatedStatus)).Msg("applied node event")
	return nil
}

// ApplyInstanceEvent updates a service instance's execution and/or resource
// status from an external report. It is rejected with Forbidden if the
// instance is not PLACED, since only a placed instance has a supervisor
// reporting on it.
func (i *Ingress) ApplyInstanceEvent(ev InstanceEvent) error {
	inst, err := i.repo.GetServiceInstance(ev.InstanceID)
	if err != nil {
		return &schederr.NotFound{Kind: "service_instance", ID: ev.InstanceID}
	}
	if !inst.IsPlaced() {
		return &schederr.Forbidden{Reason: "instance is not placed"}
	}

	if ev.ExecutionStatus != nil {
		inst.ExecutionStatus = ev.ExecutionStatus
	}
	if ev.ResourceStatus != nil {
		inst.ResourceStatus = ev.ResourceStatus
	}
	inst.Dirty = true
	if err := i.repo.UpdateServiceInstance(inst); err != nil {
		return err
	}
	log.WithInstanceID(inst.ID).Debug().Msg("applied service instance event")
	return nil
}
