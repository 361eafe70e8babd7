package cluster

import (
	"testing"

	"github.com/cuemby/warren-scheduler/pkg/types"
)

func TestAnyWithLowerPriorityIgnoresType(t *testing.T) {
	requester := &types.Service{Priority: 50, Type: types.ServiceTypeStateless}
	target := &types.Service{Priority: 10, Type: types.ServiceTypeStateful}

	if !AnyWithLowerPriority(requester, target) {
		t.Error("expected requester with higher raw priority to preempt regardless of type")
	}
	if AnyWithLowerPriority(target, requester) {
		t.Error("expected requester with lower raw priority to not preempt")
	}
}

// TestSameOrLowerTypeWithLowerPriorityShieldsStateful exercises scenario 4
// from the end-to-end property set: a STATELESS service at priority 99 may
// never preempt a STATEFUL service at priority 0, because the type bonus
// (200) outweighs any raw priority gap.
func TestSameOrLowerTypeWithLowerPriorityShieldsStateful(t *testing.T) {
	statefulIncumbent := &types.Service{Priority: 0, Type: types.ServiceTypeStateful}
	statelessChallenger := &types.Service{Priority: 99, Type: types.ServiceTypeStateless}

	if SameOrLowerTypeWithLowerPriority(statelessChallenger, statefulIncumbent) {
		t.Error("STATELESS at priority 99 must not preempt STATEFUL at priority 0")
	}
}

// TestSameOrLowerTypeWithLowerPriorityAllowsWithinType exercises scenario 3:
// within the same type, priority alone decides.
func TestSameOrLowerTypeWithLowerPriorityAllowsWithinType(t *testing.T) {
	lowPriority := &types.Service{Priority: 0, Type: types.ServiceTypeStateless}
	highPriority := &types.Service{Priority: 99, Type: types.ServiceTypeStateless}

	if !SameOrLowerTypeWithLowerPriority(highPriority, lowPriority) {
		t.Error("STATELESS at priority 99 should preempt STATELESS at priority 0")
	}
	if SameOrLowerTypeWithLowerPriority(lowPriority, highPriority) {
		t.Error("STATELESS at priority 0 should not preempt STATELESS at priority 99")
	}
}

func TestSameOrLowerTypeWithLowerPriorityFragileBetweenStatelessAndStateful(t *testing.T) {
	fragile := &types.Service{Priority: 0, Type: types.ServiceTypeFragile}
	statelessChallenger := &types.Service{Priority: 50, Type: types.ServiceTypeStateless}
	statefulIncumbent := &types.Service{Priority: 0, Type: types.ServiceTypeStateful}

	if SameOrLowerTypeWithLowerPriority(statelessChallenger, fragile) {
		t.Error("STATELESS must not preempt FRAGILE even at a large priority gap")
	}
	if SameOrLowerTypeWithLowerPriority(fragile, statefulIncumbent) {
		t.Error("FRAGILE must not preempt STATEFUL")
	}
}
