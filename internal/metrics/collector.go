// Package suppmetrics exposes the replica's Prometheus metrics.
package suppmetrics

import "github.com/prometheus/client_golang/prometheus"

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "supplicantd"
	subsystem = "replica"
)

const labelOp = "op"

// -------------------------------------------------------------------------
// Collector — Prometheus Replica Metrics
// -------------------------------------------------------------------------

// Collector holds all replica Prometheus metrics. It satisfies
// internal/supplicant.Metrics structurally; the supplicant package never
// imports this one.
type Collector struct {
	// Interfaces tracks the number of interfaces currently in the replica.
	Interfaces prometheus.Gauge

	// Networks tracks the number of networks currently in the replica,
	// summed across all interfaces.
	Networks prometheus.Gauge

	// BSSs tracks the number of BSSs currently in the replica, summed
	// across all interfaces.
	BSSs prometheus.Gauge

	// ScansStarted counts Scan control operations that reached the peer
	// successfully.
	ScansStarted prometheus.Counter

	// ScansFinished counts ScanDone signals observed from any interface.
	ScansFinished prometheus.Counter

	// PeerAvailable counts NameOwnerChanged transitions into availability
	// (including the initial already-running case).
	PeerAvailable prometheus.Counter

	// PeerUnavailable counts NameOwnerChanged transitions out of
	// availability (peer crash or clean shutdown).
	PeerUnavailable prometheus.Counter

	// ControlErrors counts failed control operations, labeled by operation
	// name ("create_interface", "scan", "disconnect", "set_debug_level").
	ControlErrors *prometheus.CounterVec
}

// NewCollector creates a Collector with all replica metrics registered
// against reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Interfaces,
		c.Networks,
		c.BSSs,
		c.ScansStarted,
		c.ScansFinished,
		c.PeerAvailable,
		c.PeerUnavailable,
		c.ControlErrors,
	)

	return c
}

func newMetrics() *Collector {
	return &Collector{
		Interfaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "interfaces",
			Help:      "Number of interfaces currently tracked by the replica.",
		}),

		Networks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "networks",
			Help:      "Number of networks currently tracked by the replica.",
		}),

		BSSs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bsss",
			Help:      "Number of BSSs currently tracked by the replica.",
		}),

		ScansStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scans_started_total",
			Help:      "Total scans successfully requested from any interface.",
		}),

		ScansFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scans_finished_total",
			Help:      "Total ScanDone signals observed from any interface.",
		}),

		PeerAvailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peer_available_total",
			Help:      "Total transitions of the peer into availability.",
		}),

		PeerUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peer_unavailable_total",
			Help:      "Total transitions of the peer out of availability.",
		}),

		ControlErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "control_errors_total",
			Help:      "Total control operation failures, labeled by operation.",
		}, []string{labelOp}),
	}
}

// -------------------------------------------------------------------------
// internal/supplicant.Metrics implementation
// -------------------------------------------------------------------------

func (c *Collector) SetInterfaces(n int) { c.Interfaces.Set(float64(n)) }
func (c *Collector) SetNetworks(n int)   { c.Networks.Set(float64(n)) }
func (c *Collector) SetBSSs(n int)       { c.BSSs.Set(float64(n)) }

func (c *Collector) IncScanStarted()  { c.ScansStarted.Inc() }
func (c *Collector) IncScanFinished() { c.ScansFinished.Inc() }

func (c *Collector) IncPeerAvailable()   { c.PeerAvailable.Inc() }
func (c *Collector) IncPeerUnavailable() { c.PeerUnavailable.Inc() }

func (c *Collector) IncControlError(op string) { c.ControlErrors.WithLabelValues(op).Inc() }
