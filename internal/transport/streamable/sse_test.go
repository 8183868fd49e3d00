package streamable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpi-go/mcpi/internal/mcp"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Publish(&mcp.SSEEvent{Data: "hello"})

	select {
	case ev := <-ch1:
		assert.Equal(t, "hello", ev.Data)
	case <-time.After(time.Second):
		t.Fatal("subscriber 1 did not receive event")
	}
	select {
	case ev := <-ch2:
		assert.Equal(t, "hello", ev.Data)
	case <-time.After(time.Second):
		t.Fatal("subscriber 2 did not receive event")
	}
}

func TestBroadcasterDropsOldestPerLaggingSubscriberOnly(t *testing.T) {
	b := NewBroadcaster()
	slow, unsubSlow := b.Subscribe()
	defer unsubSlow()
	fast, unsubFast := b.Subscribe()
	defer unsubFast()

	// Overflow the slow subscriber's buffer without ever draining it.
	for i := 0; i < subscriberBufferCapacity+5; i++ {
		b.Publish(&mcp.SSEEvent{Data: "x"})
	}

	// Neither subscriber is drained while publishing; each keeps its own
	// capacity-bounded backlog and the publisher never blocks on either.
	drained := 0
	for {
		select {
		case <-fast:
			drained++
		default:
			goto done
		}
	}
done:
	assert.Equal(t, subscriberBufferCapacity, drained)
	assert.LessOrEqual(t, len(slow), subscriberBufferCapacity)
}

func TestBroadcasterCloseEndsSubscriptions(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestStoreCreateGetDelete(t *testing.T) {
	st := NewStore(time.Minute, time.Minute)
	defer st.Stop()

	s := st.Create()
	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)

	assert.True(t, st.Delete(s.ID))
	_, ok = st.Get(s.ID)
	assert.False(t, ok)
}

func TestStoreCleanupRemovesIdleSessions(t *testing.T) {
	st := NewStore(10*time.Millisecond, 5*time.Millisecond)
	defer st.Stop()

	s := st.Create()
	time.Sleep(50 * time.Millisecond)

	_, ok := st.Get(s.ID)
	assert.False(t, ok)
}
