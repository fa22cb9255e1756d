package network

import "github.com/prometheus/client_golang/prometheus"

// Metrics: метрики WebSocket транспорта
type Metrics struct {
	Clients  prometheus.Gauge
	Frames   *prometheus.CounterVec
	Bytes    *prometheus.CounterVec
	Dropped  prometheus.Counter
	Switches *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg; nil reg - метрики не регистрируются
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spectator_ws_clients",
			Help: "Подключённые браузеры.",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spectator_ws_frames_total",
			Help: "Кадры WebSocket по направлению.",
		}, []string{"direction"}),
		Bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spectator_ws_bytes_total",
			Help: "Байты WebSocket по направлению.",
		}, []string{"direction"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spectator_ws_dropped_clients_total",
			Help: "Клиенты, отключённые из-за переполнения очереди.",
		}),
		Switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spectator_ws_switch_tab_total",
			Help: "Запросы switchTab по результату.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Clients, m.Frames, m.Bytes, m.Dropped, m.Switches)
	}
	return m
}
