package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues collectors from each file's init; nothing is exported until Register runs.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// Register adds the bot's collectors to reg. Collectors already present are skipped, so
// tests can register against a fresh registry more than once.
func Register(reg prometheus.Registerer) error {
	var errs []error
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MustRegister exposes the collectors on the default registry served at /metrics.
func MustRegister() {
	once.Do(func() {
		if err := Register(prometheus.DefaultRegisterer); err != nil {
			panic(err)
		}
	})
}
