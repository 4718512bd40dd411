package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Namespace — префикс всех метрик.
const Namespace = "staralign"

// Metrics — метрики pipeline.
//
// Каждый экземпляр держит собственный Registry, чтобы тесты и
// несколько контроллеров в одном процессе не конфликтовали.
type Metrics struct {
	Registry *prometheus.Registry

	// StageDuration — длительность стадии в секундах.
	StageDuration *prometheus.HistogramVec

	// Runs — завершённые runs по статусу (COMPLETE / FAILED).
	Runs *prometheus.CounterVec

	// ToolFailures — ненулевые коды выхода по инструменту.
	ToolFailures *prometheus.CounterVec

	// RunsInFlight — runs, выполняемые прямо сейчас.
	RunsInFlight prometheus.Gauge
}

// NewMetrics создаёт и регистрирует метрики в новом Registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of pipeline stages",
			// от секунд (rename) до многих часов (alignment)
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		}, []string{"stage", "success"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Finished pipeline runs by final state",
		}, []string{"state"}),
		ToolFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tool_failures_total",
			Help:      "External tool failures by tool",
		}, []string{"tool"}),
		RunsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "runs_in_flight",
			Help:      "Pipeline runs currently executing",
		}),
	}
}

// ObserveStage записывает длительность стадии и, при ошибке инструмента, сбой.
func (m *Metrics) ObserveStage(stage string, seconds float64, success bool, tool string) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage, fmt.Sprint(success)).Observe(seconds)
	if !success && tool != "" {
		m.ToolFailures.WithLabelValues(tool).Inc()
	}
}

// RunStarted увеличивает счётчик выполняемых runs.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunsInFlight.Inc()
}

// RunFinished фиксирует завершение run с итоговым состоянием.
func (m *Metrics) RunFinished(state string) {
	if m == nil {
		return
	}
	m.RunsInFlight.Dec()
	m.Runs.WithLabelValues(state).Inc()
}

// Push отправляет метрики в Pushgateway под job.
func (m *Metrics) Push(url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.Registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
