// Package metrics exposes alarm clock counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/scheduler"
)

const (
	namespace = "alarm_clock"

	// readHeaderTimeout bounds slow clients of the metrics endpoint.
	readHeaderTimeout = 5 * time.Second
	// shutdownTimeout bounds the graceful shutdown of the endpoint.
	shutdownTimeout = 2 * time.Second
)

// Collector holds the clock's metrics on a private registry.
type Collector struct {
	// registry holds every collector below plus Go runtime metrics.
	registry *prometheus.Registry
	// evaluations counts minute evaluations by decision.
	evaluations *prometheus.CounterVec
	// reloads counts configuration reloads by result.
	reloads *prometheus.CounterVec
	// sounding is 1 while an alarm is playing.
	sounding prometheus.Gauge
	// alarms is the number of alarms in the active configuration.
	alarms prometheus.Gauge
}

// New creates a collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Minute boundary evaluations by decision.",
		}, []string{"decision"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration reloads by result.",
		}, []string{"result"}),
		sounding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_sounding",
			Help:      "1 while an alarm sound is playing.",
		}),
		alarms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "configured_alarms",
			Help:      "Number of alarms in the active configuration.",
		}),
	}

	c.registry.MustRegister(c.evaluations, c.reloads, c.sounding, c.alarms)
	c.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return c
}

// Evaluated implements scheduler.Observer.
func (c *Collector) Evaluated(decision scheduler.Decision) {
	c.evaluations.WithLabelValues(decision.String()).Inc()
}

// StateChanged implements scheduler.Observer.
func (c *Collector) StateChanged(state scheduler.State) {
	if state == scheduler.Sounding {
		c.sounding.Set(1)

		return
	}

	c.sounding.Set(0)
}

// Reloaded records a reload attempt and, on success, the new alarm count.
func (c *Collector) Reloaded(alarms int, err error) {
	if err != nil {
		c.reloads.WithLabelValues("failure").Inc()

		return
	}

	c.reloads.WithLabelValues("success").Inc()
	c.alarms.Set(float64(alarms))
}

// SetAlarms records the alarm count of the initial configuration.
func (c *Collector) SetAlarms(alarms int) {
	c.alarms.Set(float64(alarms))
}

// Serve exposes /metrics on address until ctx is canceled.
func (c *Collector) Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Metrics endpoint listening", "address", lis.Addr().String())

	if err = server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}
