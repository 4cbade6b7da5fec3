package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type ConsumerConfig struct {
	serverConfigs
	*securityConfig

	groupId string

	autoOffsetReset    AutoOffsetReset
	assignmentStrategy PartitionAssignmentStrategy

	sessionTimeoutMs  int
	maxPollIntervalMs int
}

func NewConsumerCfgWithSvrCfgs(serverConfigs *serverConfigs,
	securityConfig *securityConfig, groupId string) (*ConsumerConfig, error) {

	if serverConfigs == nil {
		return nil, errors.New("serverConfigs is required")
	}

	if groupId == "" {
		return nil, errors.New("groupId is required")
	}

	c := &ConsumerConfig{
		serverConfigs:      *serverConfigs,
		securityConfig:     securityConfig,
		groupId:            groupId,
		autoOffsetReset:    AutoOffsetResetEarliest,
		assignmentStrategy: PartitionAssignmentStrategyRange,
		sessionTimeoutMs:   45000,
		maxPollIntervalMs:  300000,
	}

	return c, nil
}

func NewConsumerCfg(bootstrapServers []string, groupId string) (*ConsumerConfig, error) {

	serverConfigs, err := NewServerConfigs(bootstrapServers, nil)

	if err != nil {
		return nil, err
	}

	return NewConsumerCfgWithSvrCfgs(serverConfigs, nil, groupId)
}

func (c *ConsumerConfig) WithAutoOffsetReset(offsetReset AutoOffsetReset) (*ConsumerConfig, error) {
	if IsNotValidAutoOffsetReset(offsetReset) {
		return nil, errors.New("invalid auto offset reset value")
	}
	c.autoOffsetReset = offsetReset
	return c, nil
}

func (c *ConsumerConfig) WithAssignmentStrategy(strategy PartitionAssignmentStrategy) (*ConsumerConfig, error) {
	if IsNotValidPartitionAssignmentStrategy(strategy) {
		return nil, errors.New("invalid partition assignment strategy")
	}
	c.assignmentStrategy = strategy
	return c, nil
}

func (c *ConsumerConfig) WithSessionTimeoutMs(timeoutMs int) *ConsumerConfig {
	if timeoutMs > 0 {
		c.sessionTimeoutMs = timeoutMs
	}
	return c
}

func (c *ConsumerConfig) WithMaxPollIntervalMs(intervalMs int) *ConsumerConfig {
	if intervalMs > 0 {
		c.maxPollIntervalMs = intervalMs
	}
	return c
}

func (c *ConsumerConfig) Build() (*kafka.ConfigMap, error) {
	configMap := kafka.ConfigMap{}

	c.serverConfigs.Build(&configMap)

	configMap.SetKey("group.id", c.groupId)
	configMap.SetKey("auto.offset.reset", string(c.autoOffsetReset))
	configMap.SetKey("partition.assignment.strategy", string(c.assignmentStrategy))
	configMap.SetKey("session.timeout.ms", c.sessionTimeoutMs)
	configMap.SetKey("max.poll.interval.ms", c.maxPollIntervalMs)

	// Los offsets se almacenan vía StoreConfirmedOffset cuando el sink confirma
	// sus commits: el auto commit solo publica progreso ya durable
	configMap.SetKey("enable.auto.commit", true)
	configMap.SetKey("enable.auto.offset.store", false)

	if c.securityConfig != nil {
		c.securityConfig.Build(&configMap)
	}

	return &configMap, nil
}

// MessageHandler procesa un mensaje consumido. Un error retornado detiene el
// consumo. El handler es responsable del avance de offsets vía
// StoreConfirmedOffset; los mensajes sin offset confirmado se reentregan.
type MessageHandler func(ctx context.Context, message *CustomMessage) error

type ConsumerService struct {
	Config *ConsumerConfig
	*kafka.Consumer
	logger observability.Logger
}

func NewConsumerService(config *ConsumerConfig, logger observability.Logger) (*ConsumerService, error) {
	cfg, err := config.Build()
	if err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumer(cfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerService{
		Config:   config,
		Consumer: consumer,
		logger:   logger,
	}, nil
}

func (s *ConsumerService) Subscribe(topics []string) error {
	if len(topics) == 0 {
		return errors.New("topics is required")
	}

	return s.Consumer.SubscribeTopics(topics, nil)
}

// Run consume mensajes hasta que el contexto se cancele o el handler falle.
func (s *ConsumerService) Run(ctx context.Context, handler MessageHandler) error {

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev := s.Consumer.Poll(200)

		if ev == nil {
			continue
		}

		switch e := ev.(type) {

		case *kafka.Message:
			message, err := NewCustomMessage(e, time.Now())

			if err != nil {
				s.logger.Error(ctx, "Error construyendo mensaje consumido", err)
				continue
			}

			if err := handler(ctx, message); err != nil {
				return err
			}

		case kafka.Error:
			if e.IsFatal() {
				return e
			}

			s.logger.Warn(ctx, "Kafka error no fatal", e, "code", e.Code().String())

		default:
			s.logger.Trace(ctx, "Evento de Kafka ignorado", "event", e.String())
		}
	}
}

// StoreConfirmedOffset almacena el offset siguiente al confirmado, que es el que
// el auto commit publica al consumer group.
func (s *ConsumerService) StoreConfirmedOffset(topic string, partition int32, offset int64) error {
	_, err := s.Consumer.StoreOffsets([]kafka.TopicPartition{{
		Topic:     &topic,
		Partition: partition,
		Offset:    kafka.Offset(offset + 1),
	}})

	return err
}

func (s *ConsumerService) Close() {
	if s.Consumer != nil {
		s.Consumer.Close()
	}
}
