package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo) }

// buildInfo is always 1; the labels identify the running binary and its subscription store.
var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "channel_bot_build_info",
		Help: "Version, commit and storage driver of the running channel bot.",
	},
	[]string{"version", "commit", "storage"},
)

func SetBuildInfo(version, commit, storage string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, norm(storage)).Set(1)
}
