package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolGauge struct {
	name string
	help string
	read func(*pgxpool.Stat) float64
}

var poolGauges = []poolGauge{
	{"acquired_conns", "Connections currently checked out of the pool", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }},
	{"idle_conns", "Idle connections held by the pool", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }},
	{"total_conns", "Connections open in the pool", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }},
	{"max_conns", "Configured pool size", func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }},
	{"empty_acquire_total", "Acquires that had to wait for a connection", func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }},
	{"acquire_wait_seconds_total", "Time spent waiting for a connection", func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }},
}

// RegisterPgxPoolMetrics exposes pool statistics of the settings, billing and
// history stores. Each gauge samples pool.Stat() at scrape time.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	RegisterPoolMetrics(prometheus.DefaultRegisterer, pool)
}

// RegisterPoolMetrics registers the pool gauges on reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) {
	for _, g := range poolGauges {
		read := g.read
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "oportunia",
			Subsystem: "pgxpool",
			Name:      g.name,
			Help:      g.help,
		}, func() float64 {
			return read(pool.Stat())
		}))
	}
}
