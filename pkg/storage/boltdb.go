package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	schederr "github.com/cuemby/warren-scheduler/pkg/scheduler/errors"
	"github.com/cuemby/warren-scheduler/pkg/schedulerlog"
	"github.com/cuemby/warren-scheduler/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodes            = []byte("nodes")
	bucketServices         = []byte("services")
	bucketServiceInstances = []byte("service_instances")
	bucketSchedulerLogs    = []byte("scheduler_logs")
)

// BoltStore implements Repository using go.etcd.io/bbolt, one bucket per
// entity type, JSON-encoded records keyed by id.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a BoltDB file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "warren-scheduler.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{bucketNodes, bucketServices, bucketServiceInstances, bucketSchedulerLogs}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Node operations

func (s *BoltStore) CreateNode(node *types.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put([]byte(node.ID), data)
	})
}

func (s *BoltStore) GetNode(id string) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get([]byte(id))
		if data == nil {
			return &schederr.NotFound{Kind: "node", ID: id}
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListNodes() ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(node *types.Node) error {
	return s.CreateNode(node)
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).Delete([]byte(id))
	})
}

// Service operations

func (s *BoltStore) CreateService(service *types.Service) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServices)
		data, err := json.Marshal(service)
		if err != nil {
			return err
		}
		return b.Put([]byte(service.ID), data)
	})
}

func (s *BoltStore) GetService(id string) (*types.Service, error) {
	var service types.Service
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServices)
		data := b.Get([]byte(id))
		if data == nil {
			return &schederr.NotFound{Kind: "service", ID: id}
		}
		return json.Unmarshal(data, &service)
	})
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (s *BoltStore) ListServices() ([]*types.Service, error) {
	var services []*types.Service
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServices)
		return b.ForEach(func(k, v []byte) error {
			var service types.Service
			if err := json.Unmarshal(v, &service); err != nil {
				return err
			}
			services = append(services, &service)
			return nil
		})
	})
	return services, err
}

func (s *BoltStore) UpdateService(service *types.Service) error {
	return s.CreateService(service)
}

func (s *BoltStore) DeleteService(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketServices).Delete([]byte(id))
	})
}

// Service instance operations

func (s *BoltStore) CreateServiceInstance(instance *types.ServiceInstance) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServiceInstances)
		data, err := json.Marshal(instance)
		if err != nil {
			return err
		}
		return b.Put([]byte(instance.ID), data)
	})
}

func (s *BoltStore) GetServiceInstance(id string) (*types.ServiceInstance, error) {
	var instance types.ServiceInstance
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServiceInstances)
		data := b.Get([]byte(id))
		if data == nil {
			return &schederr.NotFound{Kind: "service_instance", ID: id}
		}
		return json.Unmarshal(data, &instance)
	})
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (s *BoltStore) ListServiceInstances() ([]*types.ServiceInstance, error) {
	var instances []*types.ServiceInstance
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServiceInstances)
		return b.ForEach(func(k, v []byte) error {
			var instance types.ServiceInstance
			if err := json.Unmarshal(v, &instance); err != nil {
				return err
			}
			instances = append(instances, &instance)
			return nil
		})
	})
	return instances, err
}

func (s *BoltStore) UpdateServiceInstance(instance *types.ServiceInstance) error {
	return s.CreateServiceInstance(instance)
}

func (s *BoltStore) DeleteServiceInstance(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketServiceInstances).Delete([]byte(id))
	})
}

// Scheduler log operations

func (s *BoltStore) AppendSchedulerLog(log *schedulerlog.Log) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchedulerLogs)
		data, err := json.Marshal(log)
		if err != nil {
			return err
		}
		return b.Put([]byte(log.ID), data)
	})
}

func (s *BoltStore) ListSchedulerLogsSince(cutoff time.Time) ([]*schedulerlog.Log, error) {
	var logs []*schedulerlog.Log
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchedulerLogs)
		return b.ForEach(func(k, v []byte) error {
			var l schedulerlog.Log
			if err := json.Unmarshal(v, &l); err != nil {
				return err
			}
			if l.Timestamp.After(cutoff) {
				logs = append(logs, &l)
			}
			return nil
		})
	})
	return logs, err
}
