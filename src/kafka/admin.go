package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type AdminClientConfig struct {
	serverConfigs
	*securityConfig

	requestTimeoutMs int
	retries          int
	retryBackoffMs   int
	socketTimeoutMs  int
}

func NewAdminCgfWithSvrCfgs(serverConfigs *serverConfigs,
	securityConfig *securityConfig) (*AdminClientConfig, error) {

	if serverConfigs == nil {
		return nil, errors.New("serverConfigs is required")
	}

	a := &AdminClientConfig{
		serverConfigs:    *serverConfigs,
		securityConfig:   securityConfig,
		requestTimeoutMs: 30000,
		retries:          3,
		retryBackoffMs:   100,
		socketTimeoutMs:  60000,
	}

	return a, nil
}

func NewAdminCfg(bootstrapServers []string) (*AdminClientConfig, error) {

	serverConfigs, err := NewServerConfigs(bootstrapServers, nil)

	if err != nil {
		return nil, err
	}

	return NewAdminCgfWithSvrCfgs(serverConfigs, nil)
}

func (a *AdminClientConfig) WithRequestTimeoutMs(timeoutMs int) *AdminClientConfig {
	if timeoutMs > 0 {
		a.requestTimeoutMs = timeoutMs
	}
	return a
}

func (a *AdminClientConfig) Build() (*kafka.ConfigMap, error) {
	configMap := kafka.ConfigMap{}

	a.serverConfigs.Build(&configMap)

	configMap.SetKey("request.timeout.ms", a.requestTimeoutMs)
	configMap.SetKey("retries", a.retries)
	configMap.SetKey("retry.backoff.ms", a.retryBackoffMs)
	configMap.SetKey("socket.timeout.ms", a.socketTimeoutMs)

	if a.securityConfig != nil {
		a.securityConfig.Build(&configMap)
	}

	return &configMap, nil
}

type AdminService struct {
	Config *AdminClientConfig
	*kafka.AdminClient
	logger observability.Logger
}

func NewAdminService(config *AdminClientConfig, logger observability.Logger) (*AdminService, error) {
	cfg, err := config.Build()
	if err != nil {
		return nil, err
	}

	admin, err := kafka.NewAdminClient(cfg)
	if err != nil {
		return nil, err
	}

	return &AdminService{
		Config:      config,
		AdminClient: admin,
		logger:      logger,
	}, nil
}

// VerifyTopics valida que todos los topics configurados existan en el cluster
// antes de arrancar el consumo.
func (s *AdminService) VerifyTopics(ctx context.Context, topics []string) error {

	metadata, err := s.AdminClient.GetMetadata(nil, true, s.Config.requestTimeoutMs)

	if err != nil {
		return fmt.Errorf("get cluster metadata: %w", err)
	}

	for _, topic := range topics {

		topicMetadata, exists := metadata.Topics[topic]

		if !exists || topicMetadata.Error.Code() == kafka.ErrUnknownTopic ||
			topicMetadata.Error.Code() == kafka.ErrUnknownTopicOrPart {

			return fmt.Errorf("topic '%s' does not exist", topic)
		}

		s.logger.Trace(ctx, "Topic verificado", "topic", topic,
			"partitions", len(topicMetadata.Partitions))
	}

	return nil
}

func (s *AdminService) Close() {
	if s.AdminClient != nil {
		s.AdminClient.Close()
	}
}
