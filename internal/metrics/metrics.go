package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 流水线指标，nil 接收者上的方法均为空操作
type Metrics struct {
	Runs          *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	RunDuration   prometheus.Histogram
	CleanRows     *prometheus.GaugeVec
}

// New 创建并注册全部指标
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollboard_pipeline_runs_total",
			Help: "Pipeline runs partitioned by outcome (ok, network, parse, shape).",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrollboard_fetch_duration_seconds",
			Help:    "Time spent retrieving the sheet export.",
			Buckets: prometheus.DefBuckets,
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrollboard_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration.",
			Buckets: prometheus.DefBuckets,
		}),
		CleanRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enrollboard_clean_rows",
			Help: "Rows of the last cleaned sheet partitioned by result (kept, dropped).",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.Runs, m.FetchDuration, m.RunDuration, m.CleanRows} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRun 记录一次运行结果
func (m *Metrics) ObserveRun(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(seconds)
}

// ObserveFetch 记录拉取耗时
func (m *Metrics) ObserveFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}

// SetCleanRows 记录最近一次清洗的行数
func (m *Metrics) SetCleanRows(kept, dropped int) {
	if m == nil {
		return
	}
	m.CleanRows.WithLabelValues("kept").Set(float64(kept))
	m.CleanRows.WithLabelValues("dropped").Set(float64(dropped))
}
