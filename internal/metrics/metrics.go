// Package metrics defines the gateway's Prometheus instruments.
package metrics

import (
	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "olt_gateway"

// Command sources used as the "source" label.
const (
	SourcePoller = "poller"
	SourceBridge = "bridge"
)

// Bridge request outcomes used as the "outcome" label.
const (
	OutcomeExecuted    = "executed"
	OutcomeDecodeError = "decode_error"
	OutcomeNotFound    = "not_found"
)

// Metrics holds every instrument on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	CommandsTotal       *prometheus.CounterVec
	CommandDuration     *prometheus.HistogramVec
	PollTicksTotal      prometheus.Counter
	PollDegradedDevices prometheus.Gauge
	NATRulesRemoved     prometheus.Counter
	NATRulesAdded       prometheus.Counter
	NATDeviceFailures   prometheus.Counter
	BridgeRequests      *prometheus.CounterVec
	PublishFailures     *prometheus.CounterVec
}

// New creates the instruments and registers them with Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Device commands executed, by source and outcome kind.",
		}, []string{"source", "kind"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall time of device command execution including session setup.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		PollTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Completed fleet poll passes.",
		}),
		PollDegradedDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_degraded_devices",
			Help:      "Devices with at least one failed command in the last poll pass.",
		}),
		NATRulesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nat_rules_removed_total",
			Help:      "Stale NAT rules removed during reconciliation.",
		}),
		NATRulesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nat_rules_added_total",
			Help:      "NAT rules installed during reconciliation.",
		}),
		NATDeviceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nat_device_failures_total",
			Help:      "Devices whose NAT reconciliation failed.",
		}),
		BridgeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_requests_total",
			Help:      "Inbound command requests, by outcome.",
		}, []string{"outcome"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "MQTT publishes that failed or timed out, by topic.",
		}, []string{"topic"}),
	}

	m.registry.MustRegister(
		m.CommandsTotal,
		m.CommandDuration,
		m.PollTicksTotal,
		m.PollDegradedDevices,
		m.NATRulesRemoved,
		m.NATRulesAdded,
		m.NATDeviceFailures,
		m.BridgeRequests,
		m.PublishFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCommand records one device command result.
func (m *Metrics) ObserveCommand(source string, r models.CommandResult) {
	m.CommandsTotal.WithLabelValues(source, string(r.Kind)).Inc()
	m.CommandDuration.WithLabelValues(source).Observe(r.Duration.Seconds())
}
