package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

const DefaultFlushInterval = 500 * time.Millisecond

// SinkWorker es el único writer lógico del sink: serializa todas las llamadas.
// Un registro suelto va por Submit; si el buffer acumuló una ráfaga mientras el
// sink estaba ocupado, la ráfaga entera se entrega de una vez por SubmitMany.
type SinkWorker struct {
	name          string
	coordinator   *OffsetCoordinator
	sink          RecordSink
	recordCh      chan any
	flushInterval time.Duration
	delivered     int
	wg            sync.WaitGroup
	stopCh        chan struct{}
	stopOnce      sync.Once
	observability.Logger
	metrics *observability.SinkMetrics

	mu  sync.Mutex
	err error
}

func NewSinkWorker(name string, coordinator *OffsetCoordinator,
	recordSink RecordSink,
	bufferSize int,
	flushInterval time.Duration,
	logger observability.Logger) *SinkWorker {

	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}

	worker := &SinkWorker{
		name:          name,
		coordinator:   coordinator,
		sink:          recordSink,
		recordCh:      make(chan any, bufferSize),
		flushInterval: flushInterval,
		wg:            sync.WaitGroup{},
		stopCh:        make(chan struct{}),
		Logger:        logger,
		metrics:       observability.GetSinkMetrics(),
	}

	worker.metrics.SetWorkerBufferSize(name, float64(bufferSize))

	return worker
}

func (w *SinkWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Info(ctx, "SinkWorker stopped by context done", "worker", w.name)
			return

		case <-w.stopCh:
			w.Info(ctx, "SinkWorker stopped by stop channel", "worker", w.name)

			if err := w.drainAndFlush(ctx); err != nil {
				w.setErr(err)
			}

			return

		case record := <-w.recordCh:
			batch := w.collectBurst(record)

			w.metrics.SetRecordsInProcess(w.name, float64(len(w.recordCh)))

			if err := w.deliver(ctx, batch); err != nil {
				w.Error(ctx, "Error delivering records to sink", err, "worker", w.name)
				w.setErr(err)
				return
			}

			w.confirmCommitted(ctx)

		case <-ticker.C:
			// Sin tráfico nuevo, el trabajo pendiente no puede quedar abierto
			if err := w.sink.Flush(ctx); err != nil {
				w.Error(ctx, "Error flushing sink", err, "worker", w.name)
				w.setErr(err)
				return
			}

			w.confirmCommitted(ctx)
		}
	}
}

// collectBurst junta el registro recibido con todo lo que ya está encolado.
// La ráfaga completa se entrega como una sola unidad, sin partirla.
func (w *SinkWorker) collectBurst(first any) []any {
	batch := []any{first}

	for n := len(w.recordCh); n > 0; n-- {
		batch = append(batch, <-w.recordCh)
	}

	return batch
}

func (w *SinkWorker) deliver(ctx context.Context, batch []any) error {
	var err error

	if len(batch) == 1 {
		err = w.sink.Submit(ctx, batch[0])
	} else {
		w.Trace(ctx, "Entregando ráfaga agrupada", "worker", w.name, "size", len(batch))

		err = w.sink.SubmitMany(ctx, batch)
	}

	if err != nil {
		return err
	}

	w.delivered += len(batch)

	if !w.sink.Writable() {
		return w.sink.Flush(ctx)
	}

	return nil
}

// confirmCommitted avanza los offsets confirmados cuando el sink quedó sin trabajo
// pendiente: todo lo entregado hasta aquí ya fue commiteado o descartado.
func (w *SinkWorker) confirmCommitted(ctx context.Context) {
	if w.coordinator == nil || w.delivered == 0 {
		return
	}

	if w.sink.Pending() != 0 {
		return
	}

	w.coordinator.Confirm(ctx, w.delivered)
	w.delivered = 0
}

func (w *SinkWorker) drainAndFlush(ctx context.Context) error {

	for {
		select {
		case record := <-w.recordCh:
			if err := w.deliver(ctx, w.collectBurst(record)); err != nil {
				return err
			}

			w.confirmCommitted(ctx)
		default:
			if err := w.sink.Flush(ctx); err != nil {
				return err
			}

			w.confirmCommitted(ctx)

			return nil
		}
	}
}

func (w *SinkWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *SinkWorker) Stop(ctx context.Context) {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Process encola un registro hacia el worker. Bloquea con timeout si el buffer
// está lleno para no perder registros en silencio.
func (w *SinkWorker) Process(ctx context.Context, record any) error {
	if err := w.Err(); err != nil {
		return fmt.Errorf("sink worker failed: %w", err)
	}

	select {
	case w.recordCh <- record:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("worker buffer full, timeout after 5s")
	}
}

func (w *SinkWorker) PendingRecords() int {
	return len(w.recordCh)
}

// Err retorna el error terminal del worker, si lo hay.
func (w *SinkWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *SinkWorker) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err == nil {
		w.err = err
	}
}
