package pipeline

import (
	"context"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
)

// RecordSink es la interfaz que debe implementar un sink para persistir registros,
// individuales o agrupados, con flush explícito y señal de backpressure
type RecordSink interface {
	Submit(ctx context.Context, record any) error

	SubmitMany(ctx context.Context, records []any) error

	Flush(ctx context.Context) error

	Writable() bool

	Pending() uint
}

// RecordFilter decide si un registro decodificado sigue hacia el sink
type RecordFilter interface {
	ShouldProcess(ctx context.Context, record map[string]any) bool
}

// RecordFilterFactory es la interfaz que debe implementar un factory para crear filtros
type RecordFilterFactory interface {
	CreateFilter(config config.FilterConfig) RecordFilter
}

// DeadLetter recibe los payloads que no pudieron procesarse, con su motivo
type DeadLetter interface {
	Publish(ctx context.Context, payload []byte, reason string) error

	Close() error
}
