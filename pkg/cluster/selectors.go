package cluster

import "github.com/cuemby/warren-scheduler/pkg/types"

// Selector is a pure predicate over two services: does requester have
// priority over target for preemption purposes? Selectors are exposed as
// first-class values so tests and alternate scheduling policies can inject
// a different one.
type Selector func(requester, target *types.Service) bool

// AnyWithLowerPriority allows preemption of any service with a strictly
// lower raw priority, ignoring type.
func AnyWithLowerPriority(requester, target *types.Service) bool {
	return requester.Priority > target.Priority
}

// SameOrLowerTypeWithLowerPriority is the default preemption selector. It
// compares priority + type bonus (STATELESS=0, FRAGILE=100, STATEFUL=200):
// the requester wins iff its adjusted key is strictly greater than the
// target's. This encodes the policy that a STATEFUL service is never
// evicted to make room for a FRAGILE or STATELESS one regardless of raw
// priority, and likewise protects FRAGILE from STATELESS.
func SameOrLowerTypeWithLowerPriority(requester, target *types.Service) bool {
	return requester.AdjustedPriority() > target.AdjustedPriority()
}
