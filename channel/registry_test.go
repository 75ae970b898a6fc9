package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"conker/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(total int) *Registry {
	return NewRegistry(zerolog.Nop(), total, nil, func(types.Value) {})
}

func TestIdentityForIsSymmetric(t *testing.T) {
	r := testRegistry(2)
	a := Instance{Task: "A"}
	b := Instance{Task: "B"}

	id1 := r.IdentityFor(a, b)
	id2 := r.IdentityFor(b, a)
	assert.Equal(t, id1, id2, "identity must not depend on direction")

	id3 := r.IdentityFor(a, b)
	assert.Equal(t, id1, id3, "identity must be stable across calls")
}

func TestSendThenReceiveRendezvous(t *testing.T) {
	r := testRegistry(2)
	a := Instance{Task: "A"}
	b := Instance{Task: "B"}
	chID := r.IdentityFor(a, b)

	var wg sync.WaitGroup
	wg.Add(1)
	var sendErr error
	go func() {
		defer wg.Done()
		sendErr = r.Send(context.Background(), a, chID, types.NewInt(42))
	}()

	// Give the sender a moment to enqueue before the receiver arrives.
	time.Sleep(10 * time.Millisecond)

	got, err := r.Receive(context.Background(), b, chID)
	require.NoError(t, err)
	assert.Equal(t, types.NewInt(42), got)

	wg.Wait()
	require.NoError(t, sendErr)
}

func TestReceiveThenSendRendezvous(t *testing.T) {
	r := testRegistry(2)
	a := Instance{Task: "A"}
	b := Instance{Task: "B"}
	chID := r.IdentityFor(a, b)

	var wg sync.WaitGroup
	wg.Add(1)
	var got types.Value
	var recvErr error
	go func() {
		defer wg.Done()
		got, recvErr = r.Receive(context.Background(), b, chID)
	}()

	time.Sleep(10 * time.Millisecond)

	err := r.Send(context.Background(), a, chID, types.NewInt(7))
	require.NoError(t, err)

	wg.Wait()
	require.NoError(t, recvErr)
	assert.Equal(t, types.NewInt(7), got)
}

func TestBindingReceiveMatchesEligibleSend(t *testing.T) {
	r := testRegistry(3)
	a := Instance{Task: "A"}
	b := Instance{Task: "B"}
	c := Instance{Task: "Main"}

	chAC := r.IdentityFor(a, c)
	r.IdentityFor(b, c) // allocate B<->Main too, should not be picked

	allowed := r.AllowedChannels(c, []Instance{a, b})

	var wg sync.WaitGroup
	wg.Add(1)
	var value types.Value
	var boundID types.ChanID
	var err error
	go func() {
		defer wg.Done()
		value, boundID, err = r.ReceiveBinding(context.Background(), c, allowed)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Send(context.Background(), a, chAC, types.NewInt(99)))

	wg.Wait()
	require.NoError(t, err)
	assert.Equal(t, types.NewInt(99), value)
	assert.Equal(t, chAC, boundID, "binding receive must bind to the channel the send used")
}

func TestSendToOutNeverBlocks(t *testing.T) {
	var mu sync.Mutex
	var got []types.Value
	r := NewRegistry(zerolog.Nop(), 1, nil, func(v types.Value) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})

	require.NoError(t, r.Send(context.Background(), Instance{Task: "Main"}, OutChannelID, types.NewInt(123)))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, types.NewInt(123), got[0])
}

func TestDeadlockWhenAllSuspended(t *testing.T) {
	r := testRegistry(2)
	a := Instance{Task: "A"}
	b := Instance{Task: "B"}
	chAB := r.IdentityFor(a, b)
	chBA := r.IdentityFor(b, a) // same identity as chAB, both tasks wait for each other

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errA = r.Receive(context.Background(), a, chAB)
	}()
	go func() {
		defer wg.Done()
		_, errB = r.Receive(context.Background(), b, chBA)
	}()

	wg.Wait()
	assert.ErrorIs(t, errA, ErrDeadlock)
	assert.ErrorIs(t, errB, ErrDeadlock)
}

func TestCancelledSendIsRemovedFromQueue(t *testing.T) {
	r := testRegistry(2)
	a := Instance{Task: "A"}
	b := Instance{Task: "B"}
	chID := r.IdentityFor(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Send(ctx, a, chID, types.NewInt(1))
	assert.ErrorIs(t, err, context.Canceled)

	cs := r.channels[chID]
	assert.Empty(t, cs.sends, "cancelled send must not remain queued")
}

func TestFIFOTieBreakPicksOldestWaiter(t *testing.T) {
	r := testRegistry(3)
	a := Instance{Task: "A"}
	main := Instance{Task: "Main"}
	chID := r.IdentityFor(a, main)

	done := make(chan int, 2)
	go func() {
		_ = r.Send(context.Background(), a, chID, types.NewInt(1))
		done <- 1
	}()
	time.Sleep(5 * time.Millisecond)
	go func() {
		_ = r.Send(context.Background(), a, chID, types.NewInt(2))
		done <- 2
	}()
	time.Sleep(5 * time.Millisecond)

	got, err := r.Receive(context.Background(), main, chID)
	require.NoError(t, err)
	assert.Equal(t, types.NewInt(1), got, "FIFO tie-break should match the earlier-arrived sender")

	_, err = r.Receive(context.Background(), main, chID)
	require.NoError(t, err)
}

func TestFinishedTaskTriggersDeadlockForRemainingWaiter(t *testing.T) {
	r := testRegistry(2)
	a := Instance{Task: "A"}
	main := Instance{Task: "Main"}
	chID := r.IdentityFor(a, main)

	done := make(chan error, 1)
	go func() {
		_, err := r.Receive(context.Background(), main, chID)
		done <- err
	}()
	time.Sleep(5 * time.Millisecond)

	// A finishes without ever sending: Main can never be unblocked.
	r.Finish()

	err := <-done
	assert.ErrorIs(t, err, ErrDeadlock)
}
