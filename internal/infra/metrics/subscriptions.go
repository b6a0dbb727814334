package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsExpiredTotal,
		subscriptionsActive,
		subscriptionEventsTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions revoked and removed by the sweeper.",
		},
	)

	subscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscriptions_active",
			Help: "Current number of subscriptions whose expiry is in the future.",
		},
	)

	subscriptionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_events_total",
			Help: "Lifecycle events by kind (selected/claimed/approved/rejected).",
		},
		[]string{"event"},
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func SetSubscriptionsActive(count int) {
	subscriptionsActive.Set(float64(count))
}

func IncSubscriptionEvent(event string) {
	subscriptionEventsTotal.WithLabelValues(norm(event)).Inc()
}
