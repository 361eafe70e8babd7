// Package types defines the three entities the scheduler reconciles —
// Node, Service, ServiceInstance — and nothing else. A Node is host
// capacity; a Service is declarative intent for one running instance with
// resource bounds; a ServiceInstance is that intent's current placement,
// if any. Every entity carries a Dirty flag the resolvers clear once they
// have classified it; a dirty entity left unclassified at the end of a
// pass is a scheduling error, not a silently dropped update.
package types
