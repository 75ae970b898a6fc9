// Package channel implements the channel registry and rendezvous engine:
// the spec's hard part. It matches senders with receivers, including
// wildcard binding receives, and commits exactly one match per operation
// under a single critical section.
package channel

import (
	"conker/types"

	"github.com/google/uuid"
)

// Instance identifies one running activity: a task name plus its index
// within a multi-task (0 for single-instance tasks).
type Instance struct {
	Task  string
	Index int
}

// pairKey canonicalizes a directed (from, to) instance pair into the single
// channel identity both endpoints share (spec §4.C: "these denote the same
// channel").
type pairKey struct {
	a, b Instance
}

func makePairKey(x, y Instance) pairKey {
	if lessInstance(y, x) {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

func lessInstance(x, y Instance) bool {
	if x.Task != y.Task {
		return x.Task < y.Task
	}
	return x.Index < y.Index
}

// channelState is the registry's bookkeeping for one channel identity. It
// holds no Conker-level state when idle, only the diagnostic UUID and the
// two participating endpoints.
type channelState struct {
	id       types.ChanID
	uuid     uuid.UUID
	a, b     Instance
	sends    []*sendWaiter
	receives []*receiveWaiter
}

// sendWaiter is a suspended sender: it carries the value it wants to hand
// off and the channel used to wake it with the rendezvous outcome.
type sendWaiter struct {
	task   Instance
	value  types.Value
	result chan sendResult
}

type sendResult struct {
	err error
}

// receiveWaiter is a suspended explicit receiver.
type receiveWaiter struct {
	task   Instance
	result chan receiveResult
}

// wildcardWaiter is a suspended binding receive (`?name`): it has not yet
// been bound to a specific channel identity.
type wildcardWaiter struct {
	task    Instance
	allowed map[types.ChanID]bool
	result  chan receiveResult
}

type receiveResult struct {
	value types.Value
	chID  types.ChanID
	err   error
}
