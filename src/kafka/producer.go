package kafka

import (
	"context"
	"errors"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type ProducerConfig struct {
	serverConfigs
	*securityConfig

	acks *ACKS

	lingerMs  int
	batchSize int

	retries           int
	deliveryTimeoutMs int
	messageTimeoutMs  int
}

func NewProducerCgfWithSvrCfgs(serverConfigs *serverConfigs,
	securityConfig *securityConfig) (*ProducerConfig, error) {

	if serverConfigs == nil {
		return nil, errors.New("serverConfigs is required")
	}

	acks := ACKsAll
	p := &ProducerConfig{
		serverConfigs:     *serverConfigs,
		securityConfig:    securityConfig,
		acks:              &acks,
		retries:           1,
		deliveryTimeoutMs: 10000,
		messageTimeoutMs:  10000,
	}

	return p, nil
}

func NewProducerCfg(bootstrapServers []string) (*ProducerConfig, error) {

	serverConfigs, err := NewServerConfigs(bootstrapServers, nil)

	if err != nil {
		return nil, err
	}

	return NewProducerCgfWithSvrCfgs(serverConfigs, nil)
}

func (p *ProducerConfig) WithACKs(acks ACKS) (*ProducerConfig, error) {
	if acks != ACKsAll && acks != ACKsLeader && acks != ACKsNone {
		return nil, errors.New("invalid acks value")
	}
	p.acks = &acks
	return p, nil
}

func (p *ProducerConfig) WithLingerMs(lingerMs int) *ProducerConfig {
	if lingerMs < 0 {
		return p
	}
	p.lingerMs = lingerMs
	return p
}

func (p *ProducerConfig) WithBatchSize(batchSize int) *ProducerConfig {
	if batchSize <= 0 {
		return p
	}
	p.batchSize = batchSize
	return p
}

func (p *ProducerConfig) WithRetries(retries int) *ProducerConfig {
	if retries < 0 {
		return p
	}
	p.retries = retries
	return p
}

func (p *ProducerConfig) Build() (*kafka.ConfigMap, error) {
	configMap := kafka.ConfigMap{}

	p.serverConfigs.Build(&configMap)

	configMap.SetKey("acks", int(*p.acks))
	configMap.SetKey("delivery.timeout.ms", p.deliveryTimeoutMs)
	configMap.SetKey("message.timeout.ms", p.messageTimeoutMs)
	configMap.SetKey("retries", p.retries)

	if p.lingerMs > 0 {
		configMap.SetKey("linger.ms", p.lingerMs)
	}

	if p.batchSize > 0 {
		configMap.SetKey("batch.size", p.batchSize)
	}

	if p.securityConfig != nil {
		p.securityConfig.Build(&configMap)
	}

	return &configMap, nil
}

type ProducerService struct {
	Config *ProducerConfig
	*kafka.Producer
	logger observability.Logger
}

func NewProducerService(config *ProducerConfig, logger observability.Logger) (*ProducerService, error) {
	cfg, err := config.Build()
	if err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}

	return &ProducerService{
		Config:   config,
		Producer: producer,
		logger:   logger,
	}, nil
}

func (s *ProducerService) Close() {
	if s.Producer != nil {
		s.Producer.Flush(1000)
		s.Producer.Close()
	}
}

// ProduceWithHeadersSync publica un mensaje y espera su confirmación de entrega.
func (s *ProducerService) ProduceWithHeadersSync(ctx context.Context,
	topic string, message []byte, headers []kafka.Header) error {

	deliveryChanReport := make(chan kafka.Event)

	err := s.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: int32(kafka.PartitionAny),
		},
		Value:   message,
		Headers: headers,
	}, deliveryChanReport)

	if err != nil {
		close(deliveryChanReport)
		return err
	}

	e := <-deliveryChanReport
	m := e.(*kafka.Message)
	close(deliveryChanReport)

	if m.TopicPartition.Error != nil {
		s.logger.Error(ctx, "Error producing message", m.TopicPartition.Error, "topic", topic)
		return m.TopicPartition.Error
	}

	return nil
}

func (s *ProducerService) ProduceMessageByteSync(ctx context.Context,
	topic string, message []byte) error {
	return s.ProduceWithHeadersSync(ctx, topic, message, nil)
}
