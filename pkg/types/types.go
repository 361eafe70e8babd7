// Package types defines the scheduler's domain entities: Node, Service, and
// ServiceInstance, with the status/type enums and invariants that govern
// their lifecycle.
package types

import (
	"time"

	"github.com/cuemby/warren-scheduler/pkg/resource"
)

// NodeStatus is the lifecycle state of a Node.
type NodeStatus string

const (
	NodeStatusActive  NodeStatus = "ACTIVE"
	NodeStatusFailed  NodeStatus = "FAILED"
	NodeStatusDeleted NodeStatus = "DELETED"
)

// Node is a host with a fixed resource capacity.
type Node struct {
	ID        string     `json:"id"`
	Status    NodeStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`

	// NodeResources is the total capacity. Complete when Status is ACTIVE
	// or FAILED; nil when DELETED.
	NodeResources *resource.Vector `json:"node_resources,omitempty"`

	// AvailableResources is derived each pass by Snapshot.
	// CalculateAvailableResources.
	AvailableResources *resource.Vector `json:"-"`

	// InstanceIDs is derived at snapshot load time by scanning instances.
	InstanceIDs []string `json:"-"`

	Dirty bool `json:"dirty"`
}

// ServiceStatus is the lifecycle state of a Service.
type ServiceStatus string

const (
	ServiceStatusActive  ServiceStatus = "ACTIVE"
	ServiceStatusDeleted ServiceStatus = "DELETED"
)

// ServiceType is a closed tagged variant driving preemption priority
// bonuses; no dynamic dispatch is required over it.
type ServiceType string

const (
	ServiceTypeStateless ServiceType = "STATELESS"
	ServiceTypeFragile   ServiceType = "FRAGILE"
	ServiceTypeStateful  ServiceType = "STATEFUL"
)

// TypeBonus is the static lookup table used by selectors to compute a
// service's adjusted priority key: priority + TypeBonus[type].
var TypeBonus = map[ServiceType]int{
	ServiceTypeStateless: 0,
	ServiceTypeFragile:   100,
	ServiceTypeStateful:  200,
}

// Service is declarative intent for one running instance with resource
// bounds. At most one instance exists per service at a time.
type Service struct {
	ID         string        `json:"id"`
	Executable string        `json:"executable"`
	Status     ServiceStatus `json:"status"`
	Type       ServiceType   `json:"type"`
	Priority   int           `json:"priority"`
	CreatedAt  time.Time     `json:"created_at"`

	// ResourceLimit is the upper bound. Complete when ACTIVE, nil when
	// DELETED.
	ResourceLimit *resource.Vector `json:"resource_limit,omitempty"`

	// ResourceFloor is the lower bound applied at first placement. Same
	// nullability as ResourceLimit.
	ResourceFloor *resource.Vector `json:"resource_floor,omitempty"`

	// InstanceID is a back-link to the service's sole instance, if any.
	// Derived at snapshot load time; not persisted independently.
	InstanceID *string `json:"-"`

	Dirty bool `json:"dirty"`
}

// AdjustedPriority returns priority + TypeBonus[Type], the key selectors
// compare when deciding preemption eligibility.
func (s *Service) AdjustedPriority() int {
	return s.Priority + TypeBonus[s.Type]
}

// ServiceInstanceStatus is the placement state of a ServiceInstance.
type ServiceInstanceStatus string

const (
	ServiceInstanceStatusPlaced  ServiceInstanceStatus = "PLACED"
	ServiceInstanceStatusEvicted ServiceInstanceStatus = "EVICTED"
)

// ExecutionStatus reflects liveness feedback from the worker agent. Only
// meaningful while the instance is PLACED.
type ExecutionStatus string

const (
	ExecutionStatusUnknown   ExecutionStatus = "UNKNOWN"
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCrashLoop ExecutionStatus = "CRASH_LOOP"
)

// ResourceStatus reflects resource pressure feedback from the worker agent
// on a single constrained dimension. Only meaningful while the instance is
// PLACED.
type ResourceStatus string

const (
	ResourceStatusOK   ResourceStatus = "OK"
	ResourceStatusCPU  ResourceStatus = "CPU"
	ResourceStatusRAM  ResourceStatus = "RAM"
	ResourceStatusDisk ResourceStatus = "DISK"
)

// ServiceInstance is the concrete realization of a Service on a Node.
type ServiceInstance struct {
	ID         string                `json:"id"`
	Executable string                `json:"executable"`
	ServiceID  string                `json:"service_id"`
	NodeID     *string               `json:"node_id,omitempty"`
	Status     ServiceInstanceStatus `json:"status"`
	CreatedAt  time.Time             `json:"created_at"`

	// ExecutionStatus and ResourceStatus are non-nil iff the instance is
	// PLACED.
	ExecutionStatus *ExecutionStatus `json:"execution_status,omitempty"`
	ResourceStatus  *ResourceStatus  `json:"resource_status,omitempty"`

	// AllocatedResources is complete iff PLACED, else nil.
	AllocatedResources *resource.Vector `json:"allocated_resources,omitempty"`

	Dirty bool `json:"dirty"`
}

// IsPlaced reports whether the instance is currently PLACED.
func (si *ServiceInstance) IsPlaced() bool {
	return si.Status == ServiceInstanceStatusPlaced
}
