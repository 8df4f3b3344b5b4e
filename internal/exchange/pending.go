package exchange

import (
	"container/heap"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/agent"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// delayedAction is an agent action in flight toward the book.
type delayedAction struct {
	at     domain.Nanos // effective time after the order-leg delay
	seq    int64        // submission order, breaks timestamp ties
	member int
	action agent.Action
}

// actionQueue orders delayed actions by effective time, then by
// submission sequence so simultaneous arrivals stay deterministic.
type actionQueue []*delayedAction

func (q actionQueue) Len() int { return len(q) }

func (q actionQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q actionQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *actionQueue) Push(x any) { *q = append(*q, x.(*delayedAction)) }

func (q *actionQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (q *actionQueue) push(a *delayedAction) { heap.Push(q, a) }

// popDue removes and returns the next action effective at or before now.
func (q *actionQueue) popDue(now domain.Nanos) (*delayedAction, bool) {
	if len(*q) == 0 || (*q)[0].at > now {
		return nil, false
	}
	return heap.Pop(q).(*delayedAction), true
}
