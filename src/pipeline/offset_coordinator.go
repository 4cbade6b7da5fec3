package pipeline

import (
	"context"
	"sync"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

// OffsetStore almacena el offset confirmado de una partición. Lo implementa el
// consumer: el commit del consumer group nunca debe rebasar lo que el sink ya
// hizo durable.
type OffsetStore interface {
	StoreConfirmedOffset(topic string, partition int32, offset int64) error
}

type sourcePosition struct {
	topic     string
	partition int32
	offset    int64
}

type partitionKey struct {
	topic     string
	partition int32
}

// OffsetCoordinator liga el avance de offsets de Kafka con los commits del sink.
// Cada registro que va camino al sink registra su posición de origen al encolarse;
// las posiciones se confirman en orden y solo cuando el sink quedó sin trabajo
// pendiente. Un offset almacenado implica que su registro ya fue commiteado o
// descartado de forma definitiva.
type OffsetCoordinator struct {
	mu      sync.Mutex
	pending []sourcePosition
	store   OffsetStore
	observability.Logger
}

// NewOffsetCoordinator crea un nuevo OffsetCoordinator
func NewOffsetCoordinator(store OffsetStore, logger observability.Logger) *OffsetCoordinator {
	return &OffsetCoordinator{
		mu:     sync.Mutex{},
		store:  store,
		Logger: logger,
	}
}

// Track registra la posición de origen de un registro encolado hacia el sink.
func (oc *OffsetCoordinator) Track(topic string, partition int32, offset int64) {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	oc.pending = append(oc.pending, sourcePosition{
		topic:     topic,
		partition: partition,
		offset:    offset,
	})
}

// Untrack descarta la última posición registrada; se usa cuando el encolado del
// registro falló y no va a llegar al sink.
func (oc *OffsetCoordinator) Untrack() {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	if n := len(oc.pending); n > 0 {
		oc.pending = oc.pending[:n-1]
	}
}

// Confirm marca como durables las primeras count posiciones registradas y almacena
// el offset más alto de cada partición involucrada.
func (oc *OffsetCoordinator) Confirm(ctx context.Context, count int) {
	oc.mu.Lock()

	if count > len(oc.pending) {
		count = len(oc.pending)
	}

	highest := make(map[partitionKey]sourcePosition)

	for _, pos := range oc.pending[:count] {

		key := partitionKey{topic: pos.topic, partition: pos.partition}

		if current, ok := highest[key]; !ok || pos.offset > current.offset {
			highest[key] = pos
		}
	}

	oc.pending = oc.pending[count:]

	oc.mu.Unlock()

	for _, pos := range highest {

		if err := oc.store.StoreConfirmedOffset(pos.topic, pos.partition, pos.offset); err != nil {

			oc.Error(ctx, "Error storing confirmed offset", err,
				"topic", pos.topic, "partition", pos.partition, "offset", pos.offset)

			continue
		}

		oc.Trace(ctx, "Offset confirmado", "topic", pos.topic,
			"partition", pos.partition, "offset", pos.offset)
	}
}

// PendingPositions retorna cuántas posiciones siguen sin confirmar.
func (oc *OffsetCoordinator) PendingPositions() int {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return len(oc.pending)
}
