package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

type memoryOffsetStore struct {
	mu      sync.Mutex
	offsets map[partitionKey]int64
}

func newMemoryOffsetStore() *memoryOffsetStore {
	return &memoryOffsetStore{offsets: make(map[partitionKey]int64)}
}

func (s *memoryOffsetStore) StoreConfirmedOffset(topic string, partition int32, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets[partitionKey{topic: topic, partition: partition}] = offset
	return nil
}

func (s *memoryOffsetStore) stored(topic string, partition int32) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset, ok := s.offsets[partitionKey{topic: topic, partition: partition}]
	return offset, ok
}

func (s *memoryOffsetStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offsets)
}

func TestOffsetCoordinator_ConfirmStoresHighestPerPartition(t *testing.T) {
	t.Parallel()

	store := newMemoryOffsetStore()
	coordinator := NewOffsetCoordinator(store, &observability.NopLogger{})

	coordinator.Track("records", 0, 10)
	coordinator.Track("records", 1, 3)
	coordinator.Track("records", 0, 11)
	coordinator.Track("records", 0, 12)

	coordinator.Confirm(context.Background(), 4)

	offset, ok := store.stored("records", 0)
	require.True(t, ok)
	require.Equal(t, int64(12), offset)

	offset, ok = store.stored("records", 1)
	require.True(t, ok)
	require.Equal(t, int64(3), offset)

	require.Zero(t, coordinator.PendingPositions())
}

func TestOffsetCoordinator_ConfirmOnlyCoversGivenCount(t *testing.T) {
	t.Parallel()

	store := newMemoryOffsetStore()
	coordinator := NewOffsetCoordinator(store, &observability.NopLogger{})

	coordinator.Track("records", 0, 5)
	coordinator.Track("records", 0, 6)
	coordinator.Track("records", 0, 7)

	coordinator.Confirm(context.Background(), 2)

	offset, ok := store.stored("records", 0)
	require.True(t, ok)
	require.Equal(t, int64(6), offset)
	require.Equal(t, 1, coordinator.PendingPositions())
}

func TestOffsetCoordinator_ConfirmClampsToPending(t *testing.T) {
	t.Parallel()

	store := newMemoryOffsetStore()
	coordinator := NewOffsetCoordinator(store, &observability.NopLogger{})

	coordinator.Track("records", 0, 1)
	coordinator.Confirm(context.Background(), 10)

	offset, ok := store.stored("records", 0)
	require.True(t, ok)
	require.Equal(t, int64(1), offset)
	require.Zero(t, coordinator.PendingPositions())
}

func TestOffsetCoordinator_UntrackDropsLastPosition(t *testing.T) {
	t.Parallel()

	store := newMemoryOffsetStore()
	coordinator := NewOffsetCoordinator(store, &observability.NopLogger{})

	coordinator.Track("records", 0, 1)
	coordinator.Track("records", 0, 2)
	coordinator.Untrack()

	coordinator.Confirm(context.Background(), 2)

	offset, ok := store.stored("records", 0)
	require.True(t, ok)
	require.Equal(t, int64(1), offset)
}

// El worker no debe almacenar offsets mientras el sink tenga registros sin
// commitear; se almacenan al confirmarse el flush.
func TestSinkWorker_OffsetsFollowSinkCommits(t *testing.T) {
	t.Parallel()

	store := newMemoryOffsetStore()
	coordinator := NewOffsetCoordinator(store, &observability.NopLogger{})

	recordSink := &mockSink{}
	worker := NewSinkWorker("test", coordinator, recordSink, 16, time.Hour, &observability.NopLogger{})

	worker.Start(context.Background())

	coordinator.Track("records", 0, 100)
	require.NoError(t, worker.Process(context.Background(), "r1"))

	require.Eventually(t, func() bool {
		submits, _, _ := recordSink.snapshot()
		return len(submits) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Entregado al sink pero sin commit todavía: su offset no puede avanzar
	require.Zero(t, store.count())
	require.Equal(t, 1, coordinator.PendingPositions())

	// Stop drena y fuerza el flush final; ahí sí se confirma
	worker.Stop(context.Background())

	offset, ok := store.stored("records", 0)
	require.True(t, ok)
	require.Equal(t, int64(100), offset)
	require.Zero(t, coordinator.PendingPositions())
}

func TestSinkWorker_ConfirmsAfterPeriodicFlush(t *testing.T) {
	t.Parallel()

	store := newMemoryOffsetStore()
	coordinator := NewOffsetCoordinator(store, &observability.NopLogger{})

	recordSink := &mockSink{}
	worker := NewSinkWorker("test", coordinator, recordSink, 16, 20*time.Millisecond, &observability.NopLogger{})

	worker.Start(context.Background())
	defer worker.Stop(context.Background())

	coordinator.Track("records", 3, 7)
	require.NoError(t, worker.Process(context.Background(), "r1"))

	require.Eventually(t, func() bool {
		offset, ok := store.stored("records", 3)
		return ok && offset == 7
	}, 2*time.Second, 10*time.Millisecond)
}
