package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCommandsReceivedTotal,
		telegramCallbacksReceivedTotal,
		telegramRateLimitTriggeredTotal,
		telegramPlatformErrorsTotal,
		adminCommandTotal,
	)
}

var (
	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramCallbacksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_callbacks_received_total",
			Help: "Counts inline button presses by action kind.",
		},
		[]string{"kind"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramPlatformErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_platform_errors_total",
			Help: "Failed platform calls by operation (create_invite/ban/unban/send).",
		},
		[]string{"op"},
	)

	adminCommandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_command_total",
			Help: "Tracks attempts to use admin commands.",
		},
		[]string{"command", "status"}, // status: 'authorized', 'unauthorized'
	)
)

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncTelegramCallback(kind string) {
	telegramCallbacksReceivedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncPlatformError(op string) {
	telegramPlatformErrorsTotal.WithLabelValues(norm(op)).Inc()
}

func IncAdminCommand(command, status string) {
	adminCommandTotal.WithLabelValues(norm(command), norm(status)).Inc()
}
