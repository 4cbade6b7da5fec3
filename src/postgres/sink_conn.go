package postgres

import (
	"context"
	"fmt"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/sink"

	"github.com/jackc/pgx/v5"
)

// SinkConn adapta una conexión pgx exclusiva a la capacidad de conexión del sink.
// BEGIN/COMMIT pasan por Execute; cualquier fallo ahí es de infraestructura y se
// propaga sin clasificar.
type SinkConn struct {
	conn *pgx.Conn
}

func NewSinkConn(conn *pgx.Conn) *SinkConn {
	return &SinkConn{conn: conn}
}

func (c *SinkConn) Execute(ctx context.Context, raw string) error {
	if _, err := c.conn.Exec(ctx, raw); err != nil {
		return fmt.Errorf("execute %q: %w", raw, err)
	}

	return nil
}

func (c *SinkConn) Prepare(ctx context.Context, name string, sql string) (sink.Statement, error) {
	if _, err := c.conn.Prepare(ctx, name, sql); err != nil {
		return nil, err
	}

	return &preparedStatement{conn: c.conn, name: name}, nil
}

// preparedStatement ejecuta por nombre un statement ya preparado en la conexión.
// Los errores de ejecución se clasifican: rechazo de datos vs conexión rota.
type preparedStatement struct {
	conn *pgx.Conn
	name string
}

func (s *preparedStatement) Run(ctx context.Context, args []any) error {
	if _, err := s.conn.Exec(ctx, s.name, args...); err != nil {
		return ClassifyStoreError(err)
	}

	return nil
}
