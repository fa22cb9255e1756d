package relay

import "github.com/prometheus/client_golang/prometheus"

// Metrics: метрики relay в Prometheus
type Metrics struct {
	Tabs           prometheus.Gauge
	UpstreamEvents *prometheus.CounterVec
	UIEvents       *prometheus.CounterVec
	Entities       *prometheus.GaugeVec
	SaveErrors     prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil - глобальный регистр)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Tabs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spectator",
			Name:      "tabs",
			Help:      "Число наблюдаемых вкладок.",
		}),
		UpstreamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectator",
			Name:      "upstream_events_total",
			Help:      "События игрового сервера по типу и результату.",
		}, []string{"event", "result"}),
		UIEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectator",
			Name:      "ui_events_total",
			Help:      "События, отправленные браузерам.",
		}, []string{"event"}),
		Entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "spectator",
			Name:      "tab_entities",
			Help:      "Сущности в состоянии вкладки.",
		}, []string{"tab", "kind"}),
		SaveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spectator",
			Name:      "snapshot_save_errors_total",
			Help:      "Ошибки сохранения снимков вкладок.",
		}),
	}
	reg.MustRegister(m.Tabs, m.UpstreamEvents, m.UIEvents, m.Entities, m.SaveErrors)
	return m
}
