package kafka

import (
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type KafkaEventType string

const (
	KafkaEventTypeAssignedPartitions KafkaEventType = "assigned_partitions"
	KafkaEventTypeRevokedPartitions  KafkaEventType = "revoked_partitions"
	KafkaEventTypeError              KafkaEventType = "error"
	KafkaEventTypeOther              KafkaEventType = "other"
)

type CustomMessage struct {
	Topic          string
	Partition      int32
	Offset         int64
	ConsumeDate    time.Time
	KafkaHeaders   []kafka.Header
	MessageValue   []byte
	KafkaTimestamp time.Time
}

func NewCustomMessage(message *kafka.Message, consumeDate time.Time) (*CustomMessage, error) {
	if message.TopicPartition.Topic == nil {
		return nil, errors.New("topic is nil")
	}

	m := &CustomMessage{
		Topic:          *message.TopicPartition.Topic,
		Partition:      message.TopicPartition.Partition,
		Offset:         int64(message.TopicPartition.Offset),
		KafkaHeaders:   message.Headers,
		MessageValue:   message.Value,
		ConsumeDate:    consumeDate,
		KafkaTimestamp: message.Timestamp,
	}

	return m, nil
}

type CustomError struct {
	EventType          KafkaEventType
	KafkaInternalEvent kafka.Event
	Consumer           *kafka.Consumer
	Err                error
}
