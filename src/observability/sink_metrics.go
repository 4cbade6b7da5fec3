package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SinkMetrics contiene todas las métricas del sink
type SinkMetrics struct {
	// Record metrics
	recordsPersistedTotal *prometheus.CounterVec
	recordsDroppedTotal   *prometheus.CounterVec
	recordsFilteredTotal  *prometheus.CounterVec

	// Transaction metrics
	transactionsCommittedTotal prometheus.Counter
	transactionCommitSize      prometheus.Histogram
	pendingRecords             prometheus.Gauge

	// Worker metrics
	workerBufferSize  *prometheus.GaugeVec
	recordsInProcess  *prometheus.GaugeVec
	deadLetteredTotal *prometheus.CounterVec
}

var (
	metricsInstance *SinkMetrics
	metricsOnce     sync.Once
)

// NewSinkMetrics crea e inicializa las métricas del sink
func NewSinkMetrics(registry *prometheus.Registry) *SinkMetrics {
	metricsOnce.Do(func() {
		metrics := &SinkMetrics{
			recordsPersistedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sink_records_persisted_total",
					Help: "Número total de registros persistidos en PostgreSQL",
				},
				[]string{"type"},
			),
			recordsDroppedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sink_records_dropped_total",
					Help: "Número total de registros descartados, por motivo",
				},
				[]string{"reason"},
			),
			recordsFilteredTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sink_records_filtered_total",
					Help: "Número total de registros excluidos por filtros del pipeline",
				},
				[]string{"pipeline"},
			),
			transactionsCommittedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "sink_transactions_committed_total",
					Help: "Número total de transacciones confirmadas",
				},
			),
			transactionCommitSize: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "sink_transaction_commit_size",
					Help:    "Cantidad de registros por transacción confirmada",
					Buckets: prometheus.ExponentialBuckets(1, 2, 14),
				},
			),
			pendingRecords: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "sink_pending_records",
					Help: "Registros aplicados pendientes de commit",
				},
			),
			workerBufferSize: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "sink_worker_buffer_size",
					Help: "Tamaño del buffer de cada worker",
				},
				[]string{"worker"},
			),
			recordsInProcess: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "sink_records_in_process_by_worker",
					Help: "Número de registros actualmente encolados por worker",
				},
				[]string{"worker"},
			),
			deadLetteredTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sink_dead_lettered_total",
					Help: "Número total de registros publicados en la cola de dead letter",
				},
				[]string{"reason"},
			),
		}

		registry.MustRegister(
			metrics.recordsPersistedTotal,
			metrics.recordsDroppedTotal,
			metrics.recordsFilteredTotal,
			metrics.transactionsCommittedTotal,
			metrics.transactionCommitSize,
			metrics.pendingRecords,
			metrics.workerBufferSize,
			metrics.recordsInProcess,
			metrics.deadLetteredTotal,
		)

		metricsInstance = metrics
	})

	return metricsInstance
}

// GetSinkMetrics retorna la instancia singleton de métricas
func GetSinkMetrics() *SinkMetrics {
	return metricsInstance
}

// IncRecordsPersisted incrementa el contador de registros persistidos
func (sm *SinkMetrics) IncRecordsPersisted(recordType string) {
	if sm == nil {
		return
	}
	sm.recordsPersistedTotal.WithLabelValues(recordType).Inc()
}

// IncRecordsDropped incrementa el contador de registros descartados
func (sm *SinkMetrics) IncRecordsDropped(reason string) {
	if sm == nil {
		return
	}
	sm.recordsDroppedTotal.WithLabelValues(reason).Inc()
}

// IncRecordsFiltered incrementa el contador de registros filtrados
func (sm *SinkMetrics) IncRecordsFiltered(pipeline string) {
	if sm == nil {
		return
	}
	sm.recordsFilteredTotal.WithLabelValues(pipeline).Inc()
}

// ObserveCommit registra una transacción confirmada con su tamaño
func (sm *SinkMetrics) ObserveCommit(size uint) {
	if sm == nil {
		return
	}
	sm.transactionsCommittedTotal.Inc()
	sm.transactionCommitSize.Observe(float64(size))
}

// SetPendingRecords actualiza el número de registros pendientes de commit
func (sm *SinkMetrics) SetPendingRecords(count uint) {
	if sm == nil {
		return
	}
	sm.pendingRecords.Set(float64(count))
}

// SetWorkerBufferSize actualiza el tamaño del buffer del worker
func (sm *SinkMetrics) SetWorkerBufferSize(worker string, size float64) {
	if sm == nil {
		return
	}
	sm.workerBufferSize.WithLabelValues(worker).Set(size)
}

// SetRecordsInProcess actualiza el número de registros encolados
func (sm *SinkMetrics) SetRecordsInProcess(worker string, count float64) {
	if sm == nil {
		return
	}
	sm.recordsInProcess.WithLabelValues(worker).Set(count)
}

// IncDeadLettered incrementa el contador de registros enviados a dead letter
func (sm *SinkMetrics) IncDeadLettered(reason string) {
	if sm == nil {
		return
	}
	sm.deadLetteredTotal.WithLabelValues(reason).Inc()
}
