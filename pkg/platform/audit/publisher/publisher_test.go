package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "authgate/pkg/platform/audit"
	"authgate/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Action: string(audit.EventTicketIssued),
	})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventTicketIssued), events[0].Action)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	userID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Action: string(audit.EventConsentGranted),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, _ := store.ListByUser(context.Background(), userID)
		return len(events) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	userID := uuid.NewString()
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			UserID: userID,
			Action: string(audit.EventTicketIssued),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventTicketIssued)})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_BufferFull_NeverBlocks(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventTicketIssued)})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
	pub.Close()

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, events)
	assert.LessOrEqual(t, len(events), 10)
}

func TestPublisher_Timestamps(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	t.Run("sets missing timestamp", func(t *testing.T) {
		userID := uuid.NewString()
		before := time.Now()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Action: "x"}))
		after := time.Now()

		events, err := store.ListByUser(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		userID := uuid.NewString()
		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Action: "x", Timestamp: custom}))

		events, err := store.ListByUser(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})
}

func TestPublisher_DerivesDevice(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := uuid.NewString()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		UserID:    userID,
		Action:    string(audit.EventTicketIssued),
		UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
	}))

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Device.Bot)
}

type writeOnlyStore struct{ appended int }

func (s *writeOnlyStore) Append(context.Context, audit.Event) error {
	s.appended++
	return nil
}

func TestPublisher_WriteOnlyStore(t *testing.T) {
	store := &writeOnlyStore{}
	pub := NewPublisher(store)
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "y"}))
	assert.Equal(t, 2, store.appended)
}
