// Package metrics 考勤引擎的 Prometheus 指标。
//
// 使用独立 Registry，避免测试中重复注册全局指标。所有方法对 nil 接收者安全。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry           *prometheus.Registry
	matchOutcomes      *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	scheduleConflicts  *prometheus.CounterVec
	concurrencyRetries prometheus.Counter
}

// New 创建并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		matchOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "match_outcomes_total",
			Help:      "Access events by match outcome.",
		}, []string{"outcome"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "record_transitions_total",
			Help:      "Attendance record writes by source and result.",
		}, []string{"source", "result"}),
		scheduleConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "schedule_conflicts_total",
			Help:      "Detected schedule conflicts by dimension.",
		}, []string{"dimension"}),
		concurrencyRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "concurrency_retries_total",
			Help:      "Per-pair lock conflicts that were retried.",
		}),
	}
}

// MatchOutcome 记录匹配结果：matched | ambiguous | unmatched_no_session | unmatched_outside_window
func (m *Metrics) MatchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.matchOutcomes.WithLabelValues(outcome).Inc()
}

// Transition 记录考勤写入：source=AUTOMATIC|MANUAL，result=created|updated|noop|kept_higher|kept_manual
func (m *Metrics) Transition(source, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(source, result).Inc()
}

// ScheduleConflict 记录一次冲突维度
func (m *Metrics) ScheduleConflict(dimension string) {
	if m == nil {
		return
	}
	m.scheduleConflicts.WithLabelValues(dimension).Inc()
}

// ConcurrencyRetry 记录一次并发冲突重试
func (m *Metrics) ConcurrencyRetry() {
	if m == nil {
		return
	}
	m.concurrencyRetries.Inc()
}

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
