package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted on the connect path.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with connection establishment.
type Collector interface {
	IncConnectAttempt(address string)
	IncConnectFailure(address, stage string)
	AddOpenConnections(address string, delta int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncConnectAttempt(string)         {}
func (noopCollector) IncConnectFailure(string, string) {}
func (noopCollector) AddOpenConnections(string, int)   {}

// PrometheusCollector exposes connect telemetry via Prometheus.
type PrometheusCollector struct {
	connectAttempts *prometheus.CounterVec
	connectFailures *prometheus.CounterVec
	openConnections *prometheus.GaugeVec
}

var (
	connectAttemptCounter     *prometheus.CounterVec
	connectAttemptCounterLock sync.Mutex
	connectFailureCounter     *prometheus.CounterVec
	connectFailureCounterLock sync.Mutex
	openConnectionGauge       *prometheus.GaugeVec
	openConnectionGaugeLock   sync.Mutex
)

// NewPrometheusCollector registers the required metrics with the provided registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	connectAttemptCounterLock.Lock()
	if connectAttemptCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neobolt_connect_attempts_total",
			Help: "Number of connection attempts per server address.",
		}, []string{"address"})
		if err := reg.Register(counter); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					connectAttemptCounter = existing
				} else {
					connectAttemptCounterLock.Unlock()
					return nil, err
				}
			} else {
				connectAttemptCounterLock.Unlock()
				return nil, err
			}
		} else {
			connectAttemptCounter = counter
		}
	}
	connectAttemptCounterLock.Unlock()

	connectFailureCounterLock.Lock()
	if connectFailureCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neobolt_connect_failures_total",
			Help: "Number of failed connection attempts per server address and stage.",
		}, []string{"address", "stage"})
		if err := reg.Register(counter); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					connectFailureCounter = existing
				} else {
					connectFailureCounterLock.Unlock()
					return nil, err
				}
			} else {
				connectFailureCounterLock.Unlock()
				return nil, err
			}
		} else {
			connectFailureCounter = counter
		}
	}
	connectFailureCounterLock.Unlock()

	openConnectionGaugeLock.Lock()
	if openConnectionGauge == nil {
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neobolt_open_connections",
			Help: "Number of authenticated connections currently open per server address.",
		}, []string{"address"})
		if err := reg.Register(gauge); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
					openConnectionGauge = existing
				} else {
					openConnectionGaugeLock.Unlock()
					return nil, err
				}
			} else {
				openConnectionGaugeLock.Unlock()
				return nil, err
			}
		} else {
			openConnectionGauge = gauge
		}
	}
	openConnectionGaugeLock.Unlock()

	return &PrometheusCollector{
		connectAttempts: connectAttemptCounter,
		connectFailures: connectFailureCounter,
		openConnections: openConnectionGauge,
	}, nil
}

// IncConnectAttempt increments the attempt counter for the provided address.
func (p *PrometheusCollector) IncConnectAttempt(address string) {
	if p == nil || p.connectAttempts == nil {
		return
	}
	p.connectAttempts.WithLabelValues(address).Inc()
}

// IncConnectFailure records a failed attempt for an address and stage.
func (p *PrometheusCollector) IncConnectFailure(address, stage string) {
	if p == nil || p.connectFailures == nil {
		return
	}
	p.connectFailures.WithLabelValues(address, stage).Inc()
}

// AddOpenConnections moves the open connection gauge for an address.
func (p *PrometheusCollector) AddOpenConnections(address string, delta int) {
	if p == nil || p.openConnections == nil || delta == 0 {
		return
	}
	p.openConnections.WithLabelValues(address).Add(float64(delta))
}
