/*
Package storage provides the Repository port and its BoltDB-backed
implementation: load/store of nodes, services, service instances, and
scheduler logs, opaque to the reconciliation engine in pkg/cluster and
pkg/resolvers.

# Architecture

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│  BoltStore                                                │
	│  - File: <dataDir>/warren-scheduler.db                    │
	│  - Format: B+tree with MVCC                               │
	│  - Transactions: ACID, db.View()/db.Update()               │
	│                                                            │
	│  Buckets (one per entity, JSON-encoded records by id):    │
	│    nodes | services | service_instances | scheduler_logs  │
	└────────────────────────────────────────────────────────────┘

# Design patterns

Upsert: Create and Update both do a Put, no separate existence check.
Idempotent delete: removing an absent key is not an error.
Full-scan list: ForEach over a bucket; acceptable at the cluster sizes
this scheduler targets (hundreds, not millions, of entities).

# Integration points

  - pkg/cluster.Snapshot.Load/Commit reads and writes through this
    interface once per pass.
  - pkg/events.Ingress and pkg/api mutate individual entities between
    passes, each call its own transaction.
*/
package storage
