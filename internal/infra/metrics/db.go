package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(storePoolConns) }

// storePoolConns tracks the Postgres pool behind the channel and subscription repositories.
// A sweep holds one connection per page plus one per delete, so in_use near max means
// interactive updates are queueing behind the sweeper.
var storePoolConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "subscription_store_pool_connections",
		Help: "Connections of the subscription store pool by state.",
	},
	[]string{"state"}, // max | total | idle | in_use
)

// PoolStats is the subset of pgxpool.Stat the gauges need.
type PoolStats interface {
	MaxConns() int32
	TotalConns() int32
	IdleConns() int32
	AcquiredConns() int32
}

func SetStorePoolStats(s PoolStats) {
	storePoolConns.WithLabelValues("max").Set(float64(s.MaxConns()))
	storePoolConns.WithLabelValues("total").Set(float64(s.TotalConns()))
	storePoolConns.WithLabelValues("idle").Set(float64(s.IdleConns()))
	storePoolConns.WithLabelValues("in_use").Set(float64(s.AcquiredConns()))
}
