package pipeline

import (
	"context"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/kafka"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
	confluentkafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaDeadLetter publica los payloads descartados en un topic de dead letter,
// con el motivo en un header.
type KafkaDeadLetter struct {
	producer *kafka.ProducerService
	topic    string
	logger   observability.Logger
}

func NewKafkaDeadLetter(kafkaCfg *config.KafkaConfig,
	logger observability.Logger) (*KafkaDeadLetter, error) {

	producerCfg, err := kafka.NewProducerCfg(kafkaCfg.BootstrapServers)
	if err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducerService(producerCfg, logger)
	if err != nil {
		return nil, err
	}

	return &KafkaDeadLetter{
		producer: producer,
		topic:    kafkaCfg.DLQTopic,
		logger:   logger,
	}, nil
}

func (d *KafkaDeadLetter) Publish(ctx context.Context, payload []byte, reason string) error {
	headers := []confluentkafka.Header{
		{Key: "dlq.reason", Value: []byte(reason)},
	}

	return d.producer.ProduceWithHeadersSync(ctx, d.topic, payload, headers)
}

func (d *KafkaDeadLetter) Close() error {
	d.producer.Close()
	return nil
}
