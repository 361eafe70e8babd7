// Package events is intentionally thin: both the REST handlers in pkg/api
// and the gRPC service in pkg/eventserver construct one Ingress and call
// it directly. There is no queue or broker — an event is either applied to
// the repository synchronously or rejected.
package events
