package storage

import (
	"time"

	"github.com/cuemby/warren-scheduler/pkg/schedulerlog"
	"github.com/cuemby/warren-scheduler/pkg/types"
)

// Repository is the persistence port the reconciliation engine consumes. It
// is opaque to the core: any transactional key-value or relational store
// suffices, as long as it preserves these CRUD semantics. The core never
// assumes a particular backing engine.
type Repository interface {
	// Nodes
	CreateNode(node *types.Node) error
	GetNode(id string) (*types.Node, error)
	ListNodes() ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	DeleteNode(id string) error

	// Services
	CreateService(service *types.Service) error
	GetService(id string) (*types.Service, error)
	ListServices() ([]*types.Service, error)
	UpdateService(service *types.Service) error
	DeleteService(id string) error

	// Service instances
	CreateServiceInstance(instance *types.ServiceInstance) error
	GetServiceInstance(id string) (*types.ServiceInstance, error)
	ListServiceInstances() ([]*types.ServiceInstance, error)
	UpdateServiceInstance(instance *types.ServiceInstance) error
	DeleteServiceInstance(id string) error

	// Scheduler logs
	AppendSchedulerLog(log *schedulerlog.Log) error
	ListSchedulerLogsSince(cutoff time.Time) ([]*schedulerlog.Log, error)

	// Utility
	Close() error
}
