package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(channelCacheTotal) }

// channelCacheTotal counts lookups in the Redis copy of channel records and the
// invalidations triggered by re-registration and plan edits.
var channelCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "channel_cache_operations_total",
		Help: "Channel cache operations by result (hit/miss/invalidate/error).",
	},
	[]string{"result"},
)

func IncChannelCache(result string) {
	channelCacheTotal.WithLabelValues(norm(result)).Inc()
}
