package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"

	"github.com/jackc/pgx/v5"
)

type ConnectionManager struct {
	config     *config.PostgresConfig
	logger     observability.Logger
	sqlConn    *pgx.Conn
	retryDelay time.Duration
	maxRetries int
}

func NewConnectionManager(cfg *config.PostgresConfig,
	logger observability.Logger) *ConnectionManager {

	return &ConnectionManager{
		config:     cfg,
		logger:     logger,
		retryDelay: 5 * time.Second,
		maxRetries: -1, // -1 = infinito
	}
}

func (cm *ConnectionManager) ConnectWithRetry(ctx context.Context) error {

	for attempt := 0; cm.maxRetries < 0 || attempt < cm.maxRetries; attempt++ {

		if attempt == math.MaxInt {

			cm.logger.Error(ctx,
				fmt.Sprintf("No se pudo conectar después de %d intentos reiniciando contador a 60", math.MaxInt), nil)

			attempt = 60

		}

		if attempt > 0 {

			delay := cm.calculateBackoff(attempt)

			cm.logger.Warn(ctx, "Reintentando conexión a PostgreSQL", nil,
				"attempt", attempt,
				"delay", delay.String())

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := cm.connect(ctx)

		if err == nil {
			cm.logger.Info(ctx, "Conexión a PostgreSQL establecida exitosamente")

			return nil
		}

		cm.logger.Error(ctx, "Error conectando a PostgreSQL", err,
			"attempt", attempt+1)
	}

	return fmt.Errorf("no se pudo conectar después de %d intentos", cm.maxRetries)
}

func (cm *ConnectionManager) connect(ctx context.Context) error {

	connString := cm.config.ConnectionString()

	connConfig, err := pgx.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	sqlConn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return fmt.Errorf("connect sql: %w", err)
	}

	if err := ValidateTargetTables(ctx, sqlConn, cm.config.Tables); err != nil {
		sqlConn.Close(ctx)
		return fmt.Errorf("validate target tables: %w", err)
	}

	cm.logger.Trace(ctx, "Tablas destino validadas",
		"tables", GetTableNames(cm.config.Tables))

	cm.sqlConn = sqlConn

	return nil
}

func (cm *ConnectionManager) calculateBackoff(attempt int) time.Duration {
	delay := cm.retryDelay * time.Duration(1<<uint(attempt))
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

func (cm *ConnectionManager) Conn() *pgx.Conn {
	return cm.sqlConn
}

func (cm *ConnectionManager) Close(ctx context.Context) {
	if cm.sqlConn != nil {
		cm.sqlConn.Close(ctx)
		cm.sqlConn = nil
	}
}

func (cm *ConnectionManager) Reconnect(ctx context.Context) error {
	cm.Close(ctx)
	return cm.ConnectWithRetry(ctx)
}

func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if cm.sqlConn == nil {
		return fmt.Errorf("sql connection is nil")
	}

	var result int
	err := cm.sqlConn.QueryRow(ctx, HEALTH_CHECK_QUERY).Scan(&result)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}
