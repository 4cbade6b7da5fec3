package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/expressions"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/kafka"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/pipeline"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/postgres"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/sink"
	"github.com/SOLUCIONESSYCOM/scribe"
)

const defaultWorkerBufferSize = 1024

type SinkApp struct {
	logger      observability.Logger
	connManager *postgres.ConnectionManager
	postgresCfg *config.PostgresConfig
	sinkCfg     *config.SinkConfig
	kafkaCfg    *config.KafkaConfig
	filter      pipeline.RecordFilter
	dlq         pipeline.DeadLetter
	consumer    *kafka.ConsumerService
	worker      *pipeline.SinkWorker
	pipeline    *pipeline.Pipeline
}

func NewSinkApp(ctx context.Context) (*SinkApp, error) {
	postgresCfg, err := config.PostgresCfg()
	if err != nil {
		return nil, fmt.Errorf("load postgres config: %w", err)
	}

	sinkCfg, err := config.SinkCfg()
	if err != nil {
		return nil, fmt.Errorf("load sink config: %w", err)
	}

	kafkaCfg, err := config.KafkaCfg()
	if err != nil {
		return nil, fmt.Errorf("load kafka config: %w", err)
	}

	logConfig, err := config.LogCfg()
	if err != nil {
		return nil, fmt.Errorf("load log config: %w", err)
	}

	sc, err := scribe.New(logConfig, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create scribe: %w", err)
	}

	logger := observability.NewScribeLogger(sc)

	if err := postgres.ValidateMappings(postgresCfg.Tables); err != nil {
		return nil, fmt.Errorf("validate table mappings: %w", err)
	}

	var filter pipeline.RecordFilter
	if sinkCfg.Filter != nil {
		filterFactory := expressions.NewExpressionFilterFactory(logger)
		filter = filterFactory.CreateFilter(*sinkCfg.Filter)
		logger.Info(ctx, "Filtro de registros habilitado",
			"types", sinkCfg.Filter.Types, "conditions", len(sinkCfg.Filter.Conditions))
	}

	dlq, err := buildDeadLetter(ctx, kafkaCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create dead letter: %w", err)
	}

	connManager := postgres.NewConnectionManager(postgresCfg, logger)

	return &SinkApp{
		logger:      logger,
		connManager: connManager,
		postgresCfg: postgresCfg,
		sinkCfg:     sinkCfg,
		kafkaCfg:    kafkaCfg,
		filter:      filter,
		dlq:         dlq,
	}, nil
}

func buildDeadLetter(ctx context.Context, kafkaCfg *config.KafkaConfig,
	logger observability.Logger) (pipeline.DeadLetter, error) {

	if kafkaCfg.DLQTopic != "" {
		logger.Info(ctx, "Usando Kafka dead letter", "topic", kafkaCfg.DLQTopic)
		return pipeline.NewKafkaDeadLetter(kafkaCfg, logger)
	}

	dir := kafkaCfg.DLQDir
	if dir == "" {
		dir = "dead_letter"
	}

	logger.Info(ctx, "Usando File dead letter", "dir", dir)
	return pipeline.NewFileDeadLetter(dir, logger)
}

func (a *SinkApp) Start(ctx context.Context) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		a.logger.Info(ctx, "Señal de terminación recibida, cerrando...")
		cancel()
		time.Sleep(150 * time.Millisecond)
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		func() {
			defer a.recoverPanic(ctx, "bucle de consumo")

			a.cleanupConnections(ctx)

			if err := a.connManager.ConnectWithRetry(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				a.logger.Warn(ctx, "No se pudo conectar, reintentando en el siguiente ciclo", nil)
				time.Sleep(5 * time.Second)
				return
			}

			err := a.runConsumption(ctx)
			if err != nil {
				a.logger.Error(ctx, "Error en consumo", err)
			}

			a.cleanupConnections(ctx)

			if ctx.Err() != nil {
				return
			}

			a.logger.Warn(ctx, "Consumo detenido, esperando antes de reintentar...", nil)
			time.Sleep(5 * time.Second)
		}()
	}
}

// runConsumption arma el sink sobre la conexión vigente y consume hasta que el
// contexto se cancele o el sink falle. Los statements preparados viven atados a
// la conexión, por eso el registry se reconstruye en cada ciclo.
func (a *SinkApp) runConsumption(ctx context.Context) error {

	sinkConn := postgres.NewSinkConn(a.connManager.Conn())

	registry, err := buildRegistry(ctx, sinkConn, a.postgresCfg.Tables)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	a.logger.Info(ctx, "Registry construido", "types", registry.Types())

	recordSink, err := a.buildSink(sinkConn, registry)
	if err != nil {
		return fmt.Errorf("build sink: %w", err)
	}
	defer recordSink.Close(ctx)

	consumer, err := a.buildConsumer(ctx)
	if err != nil {
		return fmt.Errorf("build consumer: %w", err)
	}
	defer consumer.Close()

	a.consumer = consumer

	// El consumer es el almacén de offsets: el coordinator solo le confirma
	// posiciones que el sink ya hizo durables
	coordinator := pipeline.NewOffsetCoordinator(consumer, a.logger)

	bufferSize := a.sinkCfg.WorkerBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultWorkerBufferSize
	}

	flushInterval := time.Duration(a.sinkCfg.FlushIntervalMs) * time.Millisecond

	worker := pipeline.NewSinkWorker("sink", coordinator, recordSink, bufferSize, flushInterval, a.logger)
	worker.Start(ctx)
	defer worker.Stop(ctx)

	a.worker = worker

	p := pipeline.NewPipeline("sink", worker, a.filter, a.dlq, coordinator, a.logger)

	a.pipeline = p

	a.logger.Info(ctx, "Iniciando consumo", "topics", a.kafkaCfg.Topics)

	return consumer.Run(ctx, func(ctx context.Context, message *kafka.CustomMessage) error {
		if err := worker.Err(); err != nil {
			return fmt.Errorf("sink terminated: %w", err)
		}
		return p.HandleMessage(ctx, message)
	})
}

func buildRegistry(ctx context.Context, conn sink.Connection,
	mappings []config.TableMapping) (*sink.Registry, error) {

	builder := sink.NewRegistryBuilder()

	for _, mapping := range mappings {
		if mapping.SQL != "" {
			builder.Register(mapping.Type, mapping.SQL, sink.ColumnMapper(mapping.Params))
			continue
		}

		builder.RegisterTable(mapping.Type, mapping.Table, mapping.Columns...)
	}

	return builder.Build(ctx, conn)
}

func (a *SinkApp) buildSink(conn sink.Connection, registry *sink.Registry) (*sink.Sink, error) {

	opts := []sink.Option{
		sink.WithLogger(a.logger),
		sink.WithDropHandler(a.handleDrop),
	}

	if a.sinkCfg.Threshold != 0 {
		opts = append(opts, sink.WithThreshold(a.sinkCfg.Threshold))
	}

	if a.sinkCfg.Capacity > 0 {
		opts = append(opts, sink.WithCapacity(a.sinkCfg.Capacity))
	}

	return sink.New(conn, registry, opts...)
}

// handleDrop manda los registros descartados por el sink a dead letter, además
// del log de error que el sink ya emitió. Los drops solo ocurren durante una
// entrega del worker, cuando el pipeline del ciclo ya existe.
func (a *SinkApp) handleDrop(record any, reason sink.DropReason) {
	if a.pipeline == nil {
		return
	}

	payload, err := json.Marshal(record)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", record))
	}

	a.pipeline.DeadLetterPayload(context.Background(), payload, pipeline.DeadLetterReasonDropped)
}

func (a *SinkApp) buildConsumer(ctx context.Context) (*kafka.ConsumerService, error) {

	consumerCfg, err := kafka.NewConsumerCfg(a.kafkaCfg.BootstrapServers, a.kafkaCfg.GroupID)
	if err != nil {
		return nil, err
	}

	if a.kafkaCfg.AutoOffsetReset != "" {
		if _, err := consumerCfg.WithAutoOffsetReset(
			kafka.AutoOffsetReset(a.kafkaCfg.AutoOffsetReset)); err != nil {
			return nil, err
		}
	}

	if err := a.verifyTopics(ctx); err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumerService(consumerCfg, a.logger)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(a.kafkaCfg.Topics); err != nil {
		consumer.Close()
		return nil, err
	}

	return consumer, nil
}

func (a *SinkApp) verifyTopics(ctx context.Context) error {

	adminCfg, err := kafka.NewAdminCfg(a.kafkaCfg.BootstrapServers)
	if err != nil {
		return err
	}

	admin, err := kafka.NewAdminService(adminCfg, a.logger)
	if err != nil {
		return err
	}
	defer admin.Close()

	topics := a.kafkaCfg.Topics
	if a.kafkaCfg.DLQTopic != "" {
		topics = append(append([]string{}, topics...), a.kafkaCfg.DLQTopic)
	}

	return admin.VerifyTopics(ctx, topics)
}

func (a *SinkApp) cleanupConnections(ctx context.Context) {
	a.logger.Trace(ctx, "Cerrando conexiones")
	if a.connManager != nil {
		a.connManager.Close(ctx)
	}
}

func (a *SinkApp) recoverPanic(ctx context.Context, operation string) {
	if r := recover(); r != nil {

		stackTrace := string(debug.Stack())

		a.logger.Error(ctx, fmt.Sprintf("Panic capturado en %s", operation),
			fmt.Errorf("panic: %v", r),
			"operation", operation,
			"panic_value", r,
			"stack_trace", stackTrace)

		a.cleanupConnections(ctx)
		time.Sleep(5 * time.Second)
	}
}

func (a *SinkApp) Close(ctx context.Context) error {

	a.logger.Trace(ctx, "Cerrando SinkApp")

	// Primero detener el consumo para que no entren más registros
	if a.consumer != nil {
		a.logger.Trace(ctx, "Cerrando consumer")
		a.consumer.Close()
		a.consumer = nil
	}

	// Luego drenar el worker, que hace flush del trabajo pendiente
	if a.worker != nil {
		a.logger.Trace(ctx, "Deteniendo worker")
		a.worker.Stop(ctx)
		a.worker = nil
	}

	if a.dlq != nil {
		a.logger.Trace(ctx, "Cerrando dead letter")
		a.dlq.Close()
		a.dlq = nil
	}

	if a.connManager != nil {
		a.logger.Trace(ctx, "Cerrando connection manager")
		a.connManager.Close(ctx)
	}

	a.logger.Trace(ctx, "SinkApp cerrado")
	return nil
}
