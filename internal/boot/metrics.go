package boot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	engineInitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lune_engine_init_total",
			Help: "Number of engines initialized during bootstrap.",
		},
		[]string{"category"},
	)

	categoryInitDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lune_engine_category_init_duration_seconds",
			Help: "Time spent initializing each engine category.",
		},
		[]string{"category"},
	)

	stageDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lune_bootstrap_stage_duration_seconds",
			Help: "Duration of the load_config, init, and start bootstrap stages.",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(engineInitTotal)
	prometheus.MustRegister(categoryInitDuration)
	prometheus.MustRegister(stageDuration)
}

func observeStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Set(d.Seconds())
}
