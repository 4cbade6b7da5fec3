package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

type mockSink struct {
	mu          sync.Mutex
	submits     []any
	groups      [][]any
	flushes     int
	pending     int
	submitErr   error
	flushErr    error
	notWritable bool
}

func (m *mockSink) Submit(ctx context.Context, record any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitErr != nil {
		return m.submitErr
	}

	m.submits = append(m.submits, record)
	m.pending++
	return nil
}

func (m *mockSink) SubmitMany(ctx context.Context, records []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitErr != nil {
		return m.submitErr
	}

	group := make([]any, len(records))
	copy(group, records)
	m.groups = append(m.groups, group)
	m.pending += len(records)
	return nil
}

func (m *mockSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.flushErr != nil {
		return m.flushErr
	}

	m.flushes++
	m.pending = 0
	return nil
}

func (m *mockSink) Writable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.notWritable
}

func (m *mockSink) Pending() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint(m.pending)
}

func (m *mockSink) snapshot() (submits []any, groups [][]any, flushes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any{}, m.submits...), append([][]any{}, m.groups...), m.flushes
}

func TestSinkWorker_SingleRecordGoesBySubmit(t *testing.T) {
	t.Parallel()

	recordSink := &mockSink{}
	worker := NewSinkWorker("test", nil, recordSink, 16, time.Hour, &observability.NopLogger{})

	worker.Start(context.Background())

	require.NoError(t, worker.Process(context.Background(), map[string]any{"type": "order"}))

	require.Eventually(t, func() bool {
		submits, _, _ := recordSink.snapshot()
		return len(submits) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, groups, _ := recordSink.snapshot()
	require.Empty(t, groups)

	worker.Stop(context.Background())
}

func TestSinkWorker_BacklogIsDeliveredAsOneBurst(t *testing.T) {
	t.Parallel()

	recordSink := &mockSink{}
	worker := NewSinkWorker("test", nil, recordSink, 16, time.Hour, &observability.NopLogger{})

	// El backlog se acumula antes de arrancar el worker
	for i := 0; i < 5; i++ {
		require.NoError(t, worker.Process(context.Background(), map[string]any{"n": i}))
	}

	worker.Start(context.Background())

	require.Eventually(t, func() bool {
		_, groups, _ := recordSink.snapshot()
		return len(groups) == 1 && len(groups[0]) == 5
	}, 2*time.Second, 10*time.Millisecond)

	submits, _, _ := recordSink.snapshot()
	require.Empty(t, submits)

	worker.Stop(context.Background())
}

func TestSinkWorker_IdleTickerFlushes(t *testing.T) {
	t.Parallel()

	recordSink := &mockSink{}
	worker := NewSinkWorker("test", nil, recordSink, 16, 20*time.Millisecond, &observability.NopLogger{})

	worker.Start(context.Background())
	defer worker.Stop(context.Background())

	require.Eventually(t, func() bool {
		_, _, flushes := recordSink.snapshot()
		return flushes >= 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSinkWorker_FlushWhenNotWritable(t *testing.T) {
	t.Parallel()

	recordSink := &mockSink{notWritable: true}
	worker := NewSinkWorker("test", nil, recordSink, 16, time.Hour, &observability.NopLogger{})

	worker.Start(context.Background())
	defer worker.Stop(context.Background())

	require.NoError(t, worker.Process(context.Background(), map[string]any{"type": "order"}))

	require.Eventually(t, func() bool {
		submits, _, flushes := recordSink.snapshot()
		return len(submits) == 1 && flushes >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSinkWorker_StopDrainsAndFlushes(t *testing.T) {
	t.Parallel()

	recordSink := &mockSink{}
	worker := NewSinkWorker("test", nil, recordSink, 16, time.Hour, &observability.NopLogger{})

	worker.Start(context.Background())

	require.NoError(t, worker.Process(context.Background(), map[string]any{"type": "order"}))

	worker.Stop(context.Background())

	submits, groups, flushes := recordSink.snapshot()
	require.Equal(t, 1, len(submits)+len(groups))
	require.GreaterOrEqual(t, flushes, 1)
	require.Zero(t, worker.PendingRecords())
}

func TestSinkWorker_SinkErrorIsTerminal(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	recordSink := &mockSink{submitErr: cause}
	worker := NewSinkWorker("test", nil, recordSink, 16, time.Hour, &observability.NopLogger{})

	worker.Start(context.Background())

	require.NoError(t, worker.Process(context.Background(), map[string]any{"type": "order"}))

	require.Eventually(t, func() bool {
		return worker.Err() != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, worker.Err(), cause)

	// Process rechaza una vez que el worker falló
	err := worker.Process(context.Background(), map[string]any{"type": "order"})
	require.Error(t, err)
}
