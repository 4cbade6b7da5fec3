package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/SOLUCIONESSYCOM/configuro"
	"github.com/SOLUCIONESSYCOM/scribe"
)

var cfg *configuro.AppConfig

var poolKeys = []string{"pool_min_conns", "pool_max_conns"}

type Condition struct {
	Field    string      `json:"Field"`
	Operator string      `json:"Operator"`
	Value    interface{} `json:"Value"`
}

type FilterConfig struct {
	Types      []string    `json:"Types,omitempty"`
	Conditions []Condition `json:"Conditions,omitempty"`
	Logic      string      `json:"Logic,omitempty"`
}

// TableMapping liga un discriminante con su tabla destino. Si SQL está presente se
// usa el statement tal cual con Params como campos ordenados; si no, se sintetiza
// el insert a partir de Table y Columns.
type TableMapping struct {
	Type    string   `json:"Type"`
	Table   string   `json:"Table,omitempty"`
	Columns []string `json:"Columns,omitempty"`
	SQL     string   `json:"SQL,omitempty"`
	Params  []string `json:"Params,omitempty"`
}

type postgresConfig struct {
	connectionString string `json:"-"` // Campo privado, no se deserializa directamente
	User             string `json:"User"`
	Password         string `json:"Password"`
	Tables           []TableMapping
}

type postgresConfigJSON struct {
	ConnectionString string         `json:"ConnectionString"`
	User             string         `json:"User"`
	Password         string         `json:"Password"`
	Tables           []TableMapping `json:"Tables"`
}

func (c *postgresConfig) ConnectionString() string {
	connString := ""

	parts := strings.Split(c.connectionString, " ")

	values := make(map[string]string)

	for _, part := range parts {
		parts := strings.Split(part, "=")
		if len(parts) == 2 {
			values[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	// El sink usa una conexión exclusiva, los parámetros de pool no aplican
	for key, value := range values {
		if !slices.Contains(poolKeys, strings.ToLower(key)) {
			connString += fmt.Sprintf("%s=%s ", key, value)
		}
	}
	connString += fmt.Sprintf("user=%s password=%s", c.User, c.Password)

	return connString
}

type PostgresConfig struct {
	*postgresConfig
	Tables []TableMapping
}

type sinkConfigJSON struct {
	Threshold        int           `json:"Threshold"`
	Capacity         int           `json:"Capacity"`
	WorkerBufferSize int           `json:"WorkerBufferSize"`
	FlushIntervalMs  int           `json:"FlushIntervalMs"`
	Filter           *FilterConfig `json:"Filter,omitempty"`
}

type SinkConfig struct {
	Threshold        int
	Capacity         int
	WorkerBufferSize int
	FlushIntervalMs  int
	Filter           *FilterConfig
}

type kafkaConfig struct {
	BootstrapServers []string `json:"BootstrapServers"`
	GroupID          string   `json:"GroupID"`
	ClientID         string   `json:"ClientID,omitempty"`
	Topics           []string `json:"Topics"`
	AutoOffsetReset  string   `json:"AutoOffsetReset,omitempty"`
	DLQTopic         string   `json:"DLQTopic,omitempty"`
	DLQDir           string   `json:"DLQDir,omitempty"`
}

type KafkaConfig struct {
	*kafkaConfig
}

type serverConfigJSON struct {
	HttpPort int `json:"HttpPort"`
}

type ServerConfig struct {
	HttpPort int
}

func loadConfig() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("error al obtener el path del archivo de configuración: %w", err)
	}

	execDir := filepath.Dir(execPath)
	configPath := filepath.Join(execDir, "config.json")

	cfg, err = configuro.NewFromJsonFiles(true, configPath)
	if err != nil {
		return fmt.Errorf("error al cargar el archivo de configuración: %w", err)
	}
	return nil
}

func ensureLoaded() error {
	if cfg == nil || !cfg.IsBeenLoaded() {
		return loadConfig()
	}
	return nil
}

func PostgresCfg() (*PostgresConfig, error) {
	if err := ensureLoaded(); err != nil {
		return nil, err
	}

	postgresConfigJson, err := configuro.GetSection[postgresConfigJSON](cfg, "Postgres")
	if err != nil {
		return nil, fmt.Errorf("error al obtener la configuración de la base de datos: %w", err)
	}

	postgresConfig := &postgresConfig{
		connectionString: postgresConfigJson.ConnectionString,
		User:             postgresConfigJson.User,
		Password:         postgresConfigJson.Password,
		Tables:           postgresConfigJson.Tables,
	}

	return &PostgresConfig{postgresConfig: postgresConfig, Tables: postgresConfig.Tables}, nil
}

func SinkCfg() (*SinkConfig, error) {
	if err := ensureLoaded(); err != nil {
		return nil, err
	}

	sinkConfigJson, err := configuro.GetSection[sinkConfigJSON](cfg, "Sink")
	if err != nil {
		return nil, fmt.Errorf("error al obtener la configuración del sink: %w", err)
	}

	return &SinkConfig{
		Threshold:        sinkConfigJson.Threshold,
		Capacity:         sinkConfigJson.Capacity,
		WorkerBufferSize: sinkConfigJson.WorkerBufferSize,
		FlushIntervalMs:  sinkConfigJson.FlushIntervalMs,
		Filter:           sinkConfigJson.Filter,
	}, nil
}

func KafkaCfg() (*KafkaConfig, error) {
	if err := ensureLoaded(); err != nil {
		return nil, err
	}

	kafkaConfigJson, err := configuro.GetSection[kafkaConfig](cfg, "Kafka")
	if err != nil {
		return nil, fmt.Errorf("error al obtener la configuración de Kafka: %w", err)
	}

	return &KafkaConfig{kafkaConfig: kafkaConfigJson}, nil
}

func ServerCfg() (*ServerConfig, error) {
	if err := ensureLoaded(); err != nil {
		return nil, err
	}

	serverConfigJson, err := configuro.GetSection[serverConfigJSON](cfg, "Server")
	if err != nil {
		return nil, fmt.Errorf("error al obtener la configuración del servidor: %w", err)
	}

	return &ServerConfig{HttpPort: serverConfigJson.HttpPort}, nil
}

func LogCfg() (*scribe.ConfigLogger, error) {
	if err := ensureLoaded(); err != nil {
		return nil, err
	}

	logConfigJson, err := configuro.GetSection[scribe.ConfigLogger](cfg, "Log")
	if err != nil {
		return nil, fmt.Errorf("error al obtener la configuración de log: %w", err)
	}
	return logConfigJson, nil
}
