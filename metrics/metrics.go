// Package metrics records dispatch outcomes as Prometheus metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/moffa90/go-morsectl/protocol"
)

// Namespace prefixes every metric name.
const Namespace = "morsectl"

// OutcomeOK labels a command that completed.
const OutcomeOK = "ok"

// Collector implements dispatch.Observer.
type Collector struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	statuses *prometheus.CounterVec
}

// New creates the collector and registers it with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "commands_total",
				Help:      "Dispatched commands by outcome.",
			},
			[]string{"command", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "command_duration_seconds",
				Help:      "Command dispatch duration in seconds.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"command"},
		),
		statuses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "device",
				Name:      "status_total",
				Help:      "Failure statuses returned by the firmware.",
			},
			[]string{"command", "status"},
		),
	}
	for _, col := range []prometheus.Collector{c.commands, c.duration, c.statuses} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveCommand records one finished dispatch. The outcome label is "ok"
// or the protocol.Kind of the failure.
func (c *Collector) ObserveCommand(command string, err error, elapsed time.Duration) {
	outcome := OutcomeOK
	if err != nil {
		outcome = protocol.KindOf(err).String()
	}
	c.commands.WithLabelValues(command, outcome).Inc()
	c.duration.WithLabelValues(command).Observe(elapsed.Seconds())

	var dErr *protocol.DeviceError
	if errors.As(err, &dErr) {
		c.statuses.WithLabelValues(command, strconv.Itoa(int(dErr.Status))).Inc()
	}
}

// WriteFile dumps every metric gathered by g to path in the text format
// read by the node exporter textfile collector.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
