package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/locker/api/internal/core/domain"
)

func TestHub_PublishReachesOnlyOwner(t *testing.T) {
	hub := NewHub()
	alice, bob := uuid.New(), uuid.New()

	aliceFeed := hub.Subscribe(alice)
	bobFeed := hub.Subscribe(bob)

	event := domain.EntryEvent{Type: domain.EventEntryCreated, EntryID: uuid.New(), At: time.Now()}
	hub.Publish(alice, event)

	select {
	case got := <-aliceFeed:
		assert.Equal(t, event, got)
	default:
		t.Fatal("expected event on owner feed")
	}

	select {
	case got := <-bobFeed:
		t.Fatalf("foreign feed received %v", got)
	default:
	}
}

func TestHub_MultipleFeedsPerUser(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	first := hub.Subscribe(userID)
	second := hub.Subscribe(userID)
	require.Equal(t, 2, hub.Subscribers(userID))

	hub.Publish(userID, domain.EntryEvent{Type: domain.EventEntryDeleted, EntryID: uuid.New()})

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch := hub.Subscribe(userID)
	hub.Unsubscribe(userID, ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.Subscribers(userID))

	// Publishing with no listeners is a no-op
	hub.Publish(userID, domain.EntryEvent{Type: domain.EventEntryUpdated})

	// Unknown channel is ignored
	hub.Unsubscribe(userID, make(chan domain.EntryEvent))
}

func TestHub_SlowConsumerDoesNotBlock(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	ch := hub.Subscribe(userID)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish(userID, domain.EntryEvent{Type: domain.EventEntryUpdated, EntryID: uuid.New()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_ConcurrentUse(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := hub.Subscribe(userID)
			hub.Publish(userID, domain.EntryEvent{Type: domain.EventEntryCreated})
			hub.Unsubscribe(userID, ch)
		}()
	}
	wg.Wait()
	assert.Zero(t, hub.Subscribers(userID))
}
