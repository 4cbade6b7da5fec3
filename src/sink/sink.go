package sink

import (
	"context"
	"fmt"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

// DefaultThreshold es el umbral de commit cuando no se configura uno explícito.
const DefaultThreshold = 1000

// DropReason clasifica por qué un registro fue descartado sin persistirse.
type DropReason string

const (
	DropReasonNonObject     DropReason = "non_object"
	DropReasonNoType        DropReason = "missing_discriminant"
	DropReasonUnregistered  DropReason = "unregistered_type"
	DropReasonStoreRejected DropReason = "store_rejected"
)

// DropHandler recibe cada registro descartado con su motivo. Se invoca además del
// log de error, nunca en lugar de él.
type DropHandler func(record any, reason DropReason)

type Option func(*Sink)

// WithThreshold fija el umbral de commit. Valores no positivos hacen fallar New.
func WithThreshold(threshold int) Option {
	return func(s *Sink) { s.threshold = threshold }
}

// WithCapacity fija la señal de backpressure: Writable() reporta false cuando los
// registros pendientes alcanzan la capacidad. Cero o negativo la deshabilita.
func WithCapacity(capacity int) Option {
	return func(s *Sink) { s.capacity = capacity }
}

func WithLogger(logger observability.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

func WithDropHandler(handler DropHandler) Option {
	return func(s *Sink) { s.onDrop = handler }
}

// Sink persiste registros etiquetados en el almacén relacional agrupando registros
// sucesivos en transacciones. No tiene concurrencia interna: asume un único writer
// lógico que serializa sus llamadas.
type Sink struct {
	conn      Connection
	registry  *Registry
	threshold int
	capacity  int
	logger    observability.Logger
	metrics   *observability.SinkMetrics
	onDrop    DropHandler

	// Progreso de transacción: pending > 0 implica active, y !active implica
	// pending == 0. Se resetea en cada commit.
	active  bool
	pending uint

	failed error
}

// New construye el sink sobre una conexión exclusiva y un registry ya compilado.
// Falla de inmediato si el threshold configurado no es positivo.
func New(conn Connection, registry *Registry, opts ...Option) (*Sink, error) {
	s := &Sink{
		conn:      conn,
		registry:  registry,
		threshold: DefaultThreshold,
		logger:    observability.NewNopLogger(),
		metrics:   observability.GetSinkMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.threshold <= 0 {
		return nil, &ConfigError{Threshold: s.threshold}
	}

	return s, nil
}

// Submit aplica un registro como unidad de entrega propia.
func (s *Sink) Submit(ctx context.Context, record any) error {
	return s.deliver(ctx, []any{record})
}

// SubmitMany aplica un grupo ordenado de registros como una sola unidad de entrega:
// todo el grupo se aplica bajo un mismo BEGIN antes de evaluar el umbral. Un grupo
// más grande que el umbral produce un commit sobredimensionado, nunca se parte.
func (s *Sink) SubmitMany(ctx context.Context, records []any) error {
	if len(records) == 0 {
		return nil
	}

	return s.deliver(ctx, records)
}

func (s *Sink) deliver(ctx context.Context, records []any) error {
	if s.failed != nil {
		return ErrTerminated
	}

	if err := ctx.Err(); err != nil {
		// Cancelación externa: estado terminal, el trabajo pendiente se abandona
		s.failed = err
		return err
	}

	if !s.active {
		if err := s.conn.Execute(ctx, "BEGIN"); err != nil {
			return s.fail(fmt.Errorf("begin transaction: %w", err))
		}

		s.logger.Debug(ctx, "Transacción iniciada")

		s.active = true
	}

	for _, record := range records {
		if err := s.tryApply(ctx, record); err != nil {
			return s.fail(err)
		}
	}

	// El umbral se evalúa una vez por unidad de entrega, no por registro
	if s.pending >= uint(s.threshold) {
		if err := s.commit(ctx); err != nil {
			return s.fail(err)
		}
	}

	return nil
}

func (s *Sink) tryApply(ctx context.Context, record any) error {
	fields, ok := record.(map[string]any)

	if !ok {
		s.logger.Error(ctx, "encountered non-object value", nil)
		s.drop(record, DropReasonNonObject)
		return nil
	}

	recordType, ok := fields[TypeField].(string)

	if !ok {
		s.logger.Error(ctx, "encountered object without the required discriminant field", nil)
		s.drop(record, DropReasonNoType)
		return nil
	}

	serializer, ok := s.registry.Resolve(recordType)

	if !ok {
		s.logger.Error(ctx, fmt.Sprintf("unregistered type: '%s'", recordType), nil)
		s.drop(record, DropReasonUnregistered)
		return nil
	}

	if err := serializer.Apply(ctx, fields); err != nil {
		if IsDataError(err) {
			s.logger.Error(ctx, "Error persisting record", err, "type", recordType)
			s.drop(record, DropReasonStoreRejected)
			return nil
		}

		return fmt.Errorf("apply record of type '%s': %w", recordType, err)
	}

	s.pending++
	s.metrics.IncRecordsPersisted(recordType)
	s.metrics.SetPendingRecords(s.pending)

	return nil
}

func (s *Sink) commit(ctx context.Context) error {
	if err := s.conn.Execute(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug(ctx, "Transacción confirmada", "records", s.pending)

	s.metrics.ObserveCommit(s.pending)
	s.metrics.SetPendingRecords(0)

	s.pending = 0
	s.active = false

	return nil
}

// Flush confirma el trabajo pendiente no commiteado. Sin pendientes es un no-op.
// Si el COMMIT falla, el error se propaga como fatal y el estado queda como está.
func (s *Sink) Flush(ctx context.Context) error {
	if s.failed != nil {
		return ErrTerminated
	}

	if s.pending == 0 {
		return nil
	}

	if err := s.commit(ctx); err != nil {
		return s.fail(err)
	}

	return nil
}

// Abort termina el sink sin intentar más commits y retorna la causa sin modificar.
// La transacción abierta, si la hay, queda abandonada.
func (s *Sink) Abort(cause error) error {
	if cause == nil {
		cause = ErrTerminated
	}

	s.failed = cause

	s.logger.Debug(context.Background(), "Sink abortado", "cause", cause.Error())

	return cause
}

// Close hace flush del trabajo pendiente y deja el sink en estado terminal limpio.
func (s *Sink) Close(ctx context.Context) error {
	if s.failed != nil {
		return ErrTerminated
	}

	if err := s.Flush(ctx); err != nil {
		return err
	}

	s.failed = ErrTerminated

	return nil
}

// Err retorna la causa terminal del sink, o nil si sigue operativo.
func (s *Sink) Err() error {
	return s.failed
}

// Pending retorna los registros aplicados desde el último commit.
func (s *Sink) Pending() uint {
	return s.pending
}

// Active reporta si hay una transacción abierta.
func (s *Sink) Active() bool {
	return s.active
}

// Writable es la señal de flujo hacia el productor: false indica que debe pausar
// Submit/SubmitMany hasta que el pendiente baje (típicamente tras un Flush).
func (s *Sink) Writable() bool {
	if s.failed != nil {
		return false
	}

	if s.capacity <= 0 {
		return true
	}

	return s.pending < uint(s.capacity)
}

func (s *Sink) fail(err error) error {
	s.failed = err
	return err
}

func (s *Sink) drop(record any, reason DropReason) {
	s.metrics.IncRecordsDropped(string(reason))

	if s.onDrop != nil {
		s.onDrop(record, reason)
	}
}
