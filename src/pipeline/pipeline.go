package pipeline

import (
	"context"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/kafka"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

const (
	DeadLetterReasonDecode  = "decode_failed"
	DeadLetterReasonDropped = "dropped_by_sink"
)

// Pipeline conecta el consumo de mensajes con el worker del sink: decodifica,
// filtra y encola. Los payloads indecodificables van a dead letter y no detienen
// el stream.
type Pipeline struct {
	name        string
	worker      *SinkWorker
	filter      RecordFilter
	dlq         DeadLetter
	coordinator *OffsetCoordinator
	logger      observability.Logger
	metrics     *observability.SinkMetrics
}

func NewPipeline(name string, worker *SinkWorker,
	filter RecordFilter,
	dlq DeadLetter,
	coordinator *OffsetCoordinator,
	logger observability.Logger) *Pipeline {

	return &Pipeline{
		name:        name,
		worker:      worker,
		filter:      filter,
		dlq:         dlq,
		coordinator: coordinator,
		logger:      logger,
		metrics:     observability.GetSinkMetrics(),
	}
}

// HandleMessage procesa un mensaje consumido. Retornar error detiene el consumo;
// un mensaje envenenado no es motivo, un sink caído sí.
func (p *Pipeline) HandleMessage(ctx context.Context, message *kafka.CustomMessage) error {

	record, err := DecodeRecord(message.MessageValue)

	if err != nil {
		p.logger.Error(ctx, "Error decoding message payload", err,
			"pipeline", p.name, "topic", message.Topic, "offset", message.Offset)

		p.deadLetter(ctx, message.MessageValue, DeadLetterReasonDecode)

		return nil
	}

	if p.filter != nil {
		if fields, ok := record.(map[string]any); ok && !p.filter.ShouldProcess(ctx, fields) {

			p.logger.Trace(ctx, "Registro filtrado", "pipeline", p.name,
				"topic", message.Topic, "offset", message.Offset)

			p.metrics.IncRecordsFiltered(p.name)

			return nil
		}
	}

	// La posición se registra antes de encolar: el offset solo avanza cuando el
	// coordinator la confirme tras el commit del sink. Los mensajes que no llegan
	// al sink (envenenados, filtrados) no se registran; sus offsets quedan
	// cubiertos por la siguiente confirmación de la misma partición.
	if p.coordinator != nil {
		p.coordinator.Track(message.Topic, message.Partition, message.Offset)
	}

	if err := p.worker.Process(ctx, record); err != nil {

		if p.coordinator != nil {
			p.coordinator.Untrack()
		}

		return err
	}

	return nil
}

func (p *Pipeline) deadLetter(ctx context.Context, payload []byte, reason string) {
	if p.dlq == nil {
		return
	}

	if err := p.dlq.Publish(ctx, payload, reason); err != nil {
		p.logger.Error(ctx, "Error publishing to dead letter", err,
			"pipeline", p.name, "reason", reason)
		return
	}

	p.metrics.IncDeadLettered(reason)
}

// DeadLetterPayload expone la cola de dead letter para otros emisores, como el
// drop handler del sink.
func (p *Pipeline) DeadLetterPayload(ctx context.Context, payload []byte, reason string) {
	p.deadLetter(ctx, payload, reason)
}
