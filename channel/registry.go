package channel

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"conker/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OutChannelID is the reserved identity of the $out magic channel (spec
// §4.C "Magic channels"): a send to it always matches immediately and never
// occupies PendingSends/PendingReceives.
const OutChannelID types.ChanID = 0

// ErrDeadlock is delivered to every suspended waiter the instant the
// registry observes that no task is running and no match is possible (spec
// §5 Deadlock: "when the count of runnable tasks reaches zero and all
// remaining tasks are suspended in the registry... declare deadlock").
var ErrDeadlock = errors.New("deadlock: no task can make progress")

// OutFunc renders a value to the standard-output sink.
type OutFunc func(types.Value)

// Registry is the channel rendezvous engine: PendingSends, PendingReceives,
// and WildcardReceives live here, all guarded by one mutex so that a match
// commits as a single atomic event (spec invariant 1).
type Registry struct {
	mu  sync.Mutex
	log zerolog.Logger

	nextID   types.ChanID
	byPair   map[pairKey]types.ChanID
	channels map[types.ChanID]*channelState
	wild     []*wildcardWaiter

	active int // tasks neither suspended in the registry nor finished
	total  int // total task instances in the program

	rng   *rand.Rand // nil selects FIFO tie-break
	out   OutFunc
	outMu sync.Mutex // serializes $out below the registry's own mutex
}

// NewRegistry creates an empty registry sized for totalTasks activities.
// seed, when non-nil, seeds a deterministic tie-break RNG (CONKER_SEED, spec
// §6/§9); otherwise the registry ties-break FIFO on arrival order.
func NewRegistry(log zerolog.Logger, totalTasks int, seed *int64, out OutFunc) *Registry {
	r := &Registry{
		log:      log,
		nextID:   OutChannelID + 1,
		byPair:   make(map[pairKey]types.ChanID),
		channels: make(map[types.ChanID]*channelState),
		active:   totalTasks,
		total:    totalTasks,
		out:      out,
	}
	if seed != nil {
		r.rng = rand.New(rand.NewSource(*seed))
	}
	return r
}

// IdentityFor returns the channel identity shared by a and b, allocating it
// lazily on first reference (spec §3: "allocated lazily the first time
// either side references the other").
func (r *Registry) IdentityFor(a, b Instance) types.ChanID {
	key := makePairKey(a, b)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPair[key]; ok {
		return id
	}

	id := r.nextID
	r.nextID++
	r.byPair[key] = id
	r.channels[id] = &channelState{id: id, uuid: uuid.New(), a: a, b: b}
	r.log.Debug().
		Int64("chan_id", int64(id)).
		Str("chan_uuid", r.channels[id].uuid.String()).
		Str("a", a.Task).Int("a_index", a.Index).
		Str("b", b.Task).Int("b_index", b.Index).
		Msg("channel identity allocated")
	return id
}

// pick selects an index among n eligible waiters under the registry's
// tie-break policy. Caller holds r.mu.
func (r *Registry) pick(n int) int {
	if r.rng == nil {
		return 0 // FIFO: oldest arrival is always at the front
	}
	return r.rng.Intn(n)
}

// suspend marks the calling task as no longer running: either it has parked
// waiting for a rendezvous, or it has finished for good (Finish). Deadlock
// is only declared when the active count drops to zero AND at least one
// waiter is actually parked in the registry. A program whose last task runs
// to completion without ever waiting on anything is not a deadlock, just
// done (spec §5: "every remaining task is suspended in the registry", not
// merely finished). Caller holds r.mu.
func (r *Registry) suspend() {
	r.active--
	r.log.Debug().Int("active", r.active).Int("total_tasks", r.total).Msg("task left the runnable set")
	if r.active == 0 && r.hasWaiters() {
		r.flushDeadlock()
	}
}

// resume marks a task as running again, having been matched or cancelled
// out of a wait. Caller holds r.mu.
func (r *Registry) resume() {
	r.active++
}

// hasWaiters reports whether any task is currently parked in the registry,
// on a specific channel or as a wildcard. Caller holds r.mu.
func (r *Registry) hasWaiters() bool {
	if len(r.wild) > 0 {
		return true
	}
	for _, cs := range r.channels {
		if len(cs.sends) > 0 || len(cs.receives) > 0 {
			return true
		}
	}
	return false
}

// flushDeadlock delivers ErrDeadlock to every waiter currently parked in the
// registry and empties the waiter sets. Caller holds r.mu.
func (r *Registry) flushDeadlock() {
	r.log.Warn().Int("total_tasks", r.total).Msg("deadlock detected: no task can make progress")
	for _, cs := range r.channels {
		for _, w := range cs.sends {
			w.result <- sendResult{err: ErrDeadlock}
		}
		cs.sends = nil
		for _, w := range cs.receives {
			w.result <- receiveResult{err: ErrDeadlock}
		}
		cs.receives = nil
	}
	for _, w := range r.wild {
		w.result <- receiveResult{err: ErrDeadlock}
	}
	r.wild = nil
}

// removeSend/removeReceive preserve arrival order on removal: the FIFO
// tie-break policy depends on position 0 always being the oldest waiter
// (spec §5 fairness: "no waiter is starved if repeatedly matchable").
func removeSend(s []*sendWaiter, idx int) []*sendWaiter {
	return append(s[:idx], s[idx+1:]...)
}

func removeReceive(s []*receiveWaiter, idx int) []*receiveWaiter {
	return append(s[:idx], s[idx+1:]...)
}

// Send performs a send on chID, blocking (suspending the caller) until a
// receiver is matched or ctx is cancelled. chID == OutChannelID is handled
// as the always-ready $out sink and never blocks (spec invariant 4).
func (r *Registry) Send(ctx context.Context, self Instance, chID types.ChanID, value types.Value) error {
	if chID == OutChannelID {
		r.outMu.Lock()
		r.out(value)
		r.outMu.Unlock()
		return nil
	}

	r.mu.Lock()
	cs := r.channels[chID]

	if len(cs.receives) > 0 {
		idx := r.pick(len(cs.receives))
		w := cs.receives[idx]
		cs.receives = removeReceive(cs.receives, idx)
		r.resume()
		r.mu.Unlock()
		r.log.Debug().Int64("chan_id", int64(chID)).Str("task", self.Task).Msg("send matched waiting receive")
		w.result <- receiveResult{value: value, chID: chID}
		return nil
	}

	if w, ok := r.popWildcardFor(chID); ok {
		r.resume()
		r.mu.Unlock()
		r.log.Debug().Int64("chan_id", int64(chID)).Str("task", self.Task).Msg("send matched wildcard receive")
		w.result <- receiveResult{value: value, chID: chID}
		return nil
	}

	waiter := &sendWaiter{task: self, value: value, result: make(chan sendResult, 1)}
	cs.sends = append(cs.sends, waiter)
	r.suspend()
	r.mu.Unlock()

	select {
	case res := <-waiter.result:
		return res.err
	case <-ctx.Done():
		r.cancelSend(chID, waiter)
		return ctx.Err()
	}
}

// Receive performs an explicit receive on chID, suspending until a sender is
// matched or ctx is cancelled.
func (r *Registry) Receive(ctx context.Context, self Instance, chID types.ChanID) (types.Value, error) {
	r.mu.Lock()
	cs := r.channels[chID]

	if len(cs.sends) > 0 {
		idx := r.pick(len(cs.sends))
		w := cs.sends[idx]
		cs.sends = removeSend(cs.sends, idx)
		r.resume()
		r.mu.Unlock()
		r.log.Debug().Int64("chan_id", int64(chID)).Str("task", self.Task).Msg("receive matched waiting send")
		w.result <- sendResult{}
		return w.value, nil
	}

	waiter := &receiveWaiter{task: self, result: make(chan receiveResult, 1)}
	cs.receives = append(cs.receives, waiter)
	r.suspend()
	r.mu.Unlock()

	select {
	case res := <-waiter.result:
		return res.value, res.err
	case <-ctx.Done():
		r.cancelReceive(chID, waiter)
		return nil, ctx.Err()
	}
}

// ReceiveBinding performs a binding receive (`?name`): it matches against
// any pending send on a channel in allowed, and on match reports which
// channel identity it bound to (spec §4.C, the wildcard-matching rule).
// Candidates are gathered by iterating over allowed, a map, so sends on
// different channels are not ordered by arrival: under the FIFO policy the
// oldest send on each channel comes first among that channel's sends, but
// which channel's sends come first is unspecified, even with a seed.
func (r *Registry) ReceiveBinding(ctx context.Context, self Instance, allowed map[types.ChanID]bool) (types.Value, types.ChanID, error) {
	r.mu.Lock()

	type candidate struct {
		chID types.ChanID
		cs   *channelState
		idx  int
	}
	var candidates []candidate
	for chID := range allowed {
		if cs := r.channels[chID]; cs != nil && len(cs.sends) > 0 {
			for i := range cs.sends {
				candidates = append(candidates, candidate{chID: chID, cs: cs, idx: i})
			}
		}
	}

	if len(candidates) > 0 {
		c := candidates[r.pick(len(candidates))]
		w := c.cs.sends[c.idx]
		c.cs.sends = removeSend(c.cs.sends, c.idx)
		r.resume()
		r.mu.Unlock()
		r.log.Debug().Int64("chan_id", int64(c.chID)).Str("task", self.Task).Msg("binding receive matched waiting send")
		w.result <- sendResult{}
		return w.value, c.chID, nil
	}

	allowedCopy := make(map[types.ChanID]bool, len(allowed))
	for id := range allowed {
		allowedCopy[id] = true
	}
	waiter := &wildcardWaiter{task: self, allowed: allowedCopy, result: make(chan receiveResult, 1)}
	r.wild = append(r.wild, waiter)
	r.suspend()
	r.mu.Unlock()

	select {
	case res := <-waiter.result:
		return res.value, res.chID, res.err
	case <-ctx.Done():
		r.cancelWildcard(waiter)
		return nil, 0, ctx.Err()
	}
}

// popWildcardFor removes and returns one wildcard waiter eligible for chID,
// if any. Caller holds r.mu.
func (r *Registry) popWildcardFor(chID types.ChanID) (*wildcardWaiter, bool) {
	var eligible []int
	for i, w := range r.wild {
		if w.allowed[chID] {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return nil, false
	}
	idx := eligible[r.pick(len(eligible))]
	w := r.wild[idx]
	r.wild = append(r.wild[:idx], r.wild[idx+1:]...)
	return w, true
}

func (r *Registry) cancelSend(chID types.ChanID, target *sendWaiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs := r.channels[chID]
	for i, w := range cs.sends {
		if w == target {
			cs.sends = removeSend(cs.sends, i)
			r.resume()
			return
		}
	}
}

func (r *Registry) cancelReceive(chID types.ChanID, target *receiveWaiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs := r.channels[chID]
	for i, w := range cs.receives {
		if w == target {
			cs.receives = removeReceive(cs.receives, i)
			r.resume()
			return
		}
	}
}

func (r *Registry) cancelWildcard(target *wildcardWaiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.wild {
		if w == target {
			r.wild = append(r.wild[:i], r.wild[i+1:]...)
			r.resume()
			return
		}
	}
}

// Finish marks a task instance as permanently done, whether by normal
// completion, `exit`, or a runtime error. A finished task can never
// unblock another waiter, exactly like one parked in the registry, so it
// is folded into the same active-count bookkeeping as suspend (spec §5
// deadlock: "the count of runnable tasks reaches zero").
func (r *Registry) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suspend()
}

// AllowedChannels resolves the channel identity against every candidate
// peer, producing the eligibility set a binding receive needs (spec §9:
// "maintain per-task inbox indices so the wildcard lookup is linear in the
// number of peers currently waiting"). Peers are computed once per task at
// scheduler startup from the static task graph.
func (r *Registry) AllowedChannels(self Instance, peers []Instance) map[types.ChanID]bool {
	allowed := make(map[types.ChanID]bool, len(peers))
	for _, peer := range peers {
		allowed[r.IdentityFor(self, peer)] = true
	}
	return allowed
}
