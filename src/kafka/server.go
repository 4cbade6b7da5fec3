package kafka

import (
	"errors"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type serverConfigs struct {
	bootstrapServers []string
	clientId         *string
}

func NewServerConfigs(bootstrapServers []string, clientId *string) (*serverConfigs, error) {
	if len(bootstrapServers) == 0 {
		return nil, errors.New("bootstrapServers is required")
	}

	return &serverConfigs{
		bootstrapServers: bootstrapServers,
		clientId:         clientId,
	}, nil
}

func (s *serverConfigs) Build(configMap *kafka.ConfigMap) {
	configMap.SetKey("bootstrap.servers", strings.Join(s.bootstrapServers, ","))

	if s.clientId != nil {
		configMap.SetKey("client.id", *s.clientId)
	}
}

type securityConfig struct {
	securityProtocol string

	sslCALocation          string
	sslCertificateLocation string
	sslKeyLocation         string

	saslMechanism string
	saslUsername  string
	saslPassword  string
}

func NewSecurityConfig() *securityConfig {
	return &securityConfig{}
}

func (c *securityConfig) WithSASL(mechanism, username, password string) *securityConfig {
	if mechanism == "" || username == "" || password == "" {
		return c
	}

	c.saslMechanism = mechanism
	c.saslUsername = username
	c.saslPassword = password

	return c
}

func (c *securityConfig) WithSSL(caLocation, certificateLocation, keyLocation string) *securityConfig {
	if caLocation == "" {
		return c
	}

	c.sslCALocation = caLocation
	c.sslCertificateLocation = certificateLocation
	c.sslKeyLocation = keyLocation

	return c
}

func (c *securityConfig) WithSecurityProtocol(protocol string) *securityConfig {
	if protocol == "" {
		return c
	}

	c.securityProtocol = protocol

	return c
}

func (c *securityConfig) Build(configMap *kafka.ConfigMap) {

	if c.securityProtocol != "" {
		configMap.SetKey("security.protocol", c.securityProtocol)
	}

	if c.saslMechanism != "" {
		configMap.SetKey("sasl.mechanisms", c.saslMechanism)
	}
	if c.saslUsername != "" {
		configMap.SetKey("sasl.username", c.saslUsername)
	}
	if c.saslPassword != "" {
		configMap.SetKey("sasl.password", c.saslPassword)
	}

	if c.sslCALocation != "" {
		configMap.SetKey("ssl.ca.location", c.sslCALocation)
	}
	if c.sslCertificateLocation != "" {
		configMap.SetKey("ssl.certificate.location", c.sslCertificateLocation)
	}
	if c.sslKeyLocation != "" {
		configMap.SetKey("ssl.key.location", c.sslKeyLocation)
	}
}
