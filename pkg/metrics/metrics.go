// Package metrics prometheus-коллекторы сервиса
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics набор коллекторов сервиса
type Metrics struct {
	service string

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dbQueryDuration *prometheus.HistogramVec
	dbPoolOpen      *prometheus.GaugeVec
	dbPoolInUse     *prometheus.GaugeVec
	dbPoolIdle      *prometheus.GaugeVec

	reconcileRunsTotal   *prometheus.CounterVec
	reconcileDriftTotal  *prometheus.CounterVec
	lifecycleSweepsTotal *prometheus.CounterVec
}

// New создает и регистрирует коллекторы в default registry
func New(service string) *Metrics {
	return &Metrics{
		service: service,

		httpRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),

		httpRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),

		dbQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"service", "operation"}),

		dbPoolOpen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_pool_open_connections",
			Help: "Number of open connections in the pool",
		}, []string{"service"}),

		dbPoolInUse: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_pool_in_use_connections",
			Help: "Number of connections currently in use",
		}, []string{"service"}),

		dbPoolIdle: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_pool_idle_connections",
			Help: "Number of idle connections in the pool",
		}, []string{"service"}),

		reconcileRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Total number of occupancy reconciliation runs",
		}, []string{"service", "outcome"}),

		reconcileDriftTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_drift_corrections_total",
			Help: "Total number of available_slots drift corrections",
		}, []string{"service", "organization"}),

		lifecycleSweepsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_sweep_transitions_total",
			Help: "Total number of time-triggered booking transitions applied by sweeps",
		}, []string{"service", "sweep"}),
	}
}

// ObserveHTTPRequest фиксирует выполненный HTTP запрос
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(m.service, method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(m.service, method, path).Observe(duration.Seconds())
}

// ObserveDBQuery фиксирует длительность запроса к БД
func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration) {
	m.dbQueryDuration.WithLabelValues(m.service, operation).Observe(duration.Seconds())
}

// SetDBPoolStats обновляет gauge-метрики connection pool
func (m *Metrics) SetDBPoolStats(open, inUse, idle int) {
	m.dbPoolOpen.WithLabelValues(m.service).Set(float64(open))
	m.dbPoolInUse.WithLabelValues(m.service).Set(float64(inUse))
	m.dbPoolIdle.WithLabelValues(m.service).Set(float64(idle))
}

// IncReconcileRun фиксирует запуск реконсиляции
func (m *Metrics) IncReconcileRun(outcome string) {
	m.reconcileRunsTotal.WithLabelValues(m.service, outcome).Inc()
}

// IncDriftCorrection фиксирует исправление дрейфа счетчика available_slots
func (m *Metrics) IncDriftCorrection(organizationID int64) {
	m.reconcileDriftTotal.WithLabelValues(m.service, strconv.FormatInt(organizationID, 10)).Inc()
}

// AddSweepTransitions фиксирует количество переходов, выполненных sweep-ом
func (m *Metrics) AddSweepTransitions(sweep string, count int64) {
	if count > 0 {
		m.lifecycleSweepsTotal.WithLabelValues(m.service, sweep).Add(float64(count))
	}
}
