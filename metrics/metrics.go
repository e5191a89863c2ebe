// Package metrics exports survey results as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taigrr/iwls/spectrum"
)

// Collector bundles the survey metrics and serves them over HTTP.
type Collector struct {
	gatherer prometheus.Gatherer

	ChannelLoad  *prometheus.GaugeVec
	AccessPoints prometheus.Gauge
	Suggested    *prometheus.GaugeVec
	Scans        *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	load, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iwls_channel_load",
		Help: "Estimated congestion of a channel, 0 to 1.",
	}, []string{"channel"}), "iwls_channel_load")
	if err != nil {
		return nil, err
	}

	aps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "iwls_access_points",
		Help: "Number of distinct access points seen by the last scan.",
	}), "iwls_access_points")
	if err != nil {
		return nil, err
	}

	suggested, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iwls_suggested_channel",
		Help: "Best channel for the current network (kind=current) or a new one (kind=new); 0 when unknown.",
	}, []string{"kind"}), "iwls_suggested_channel")
	if err != nil {
		return nil, err
	}

	scans, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iwls_scans_total",
		Help: "Scan passes, labeled by result.",
	}, []string{"result"}), "iwls_scans_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		ChannelLoad:  load,
		AccessPoints: aps,
		Suggested:    suggested,
		Scans:        scans,
	}, nil
}

// Observe updates the gauges from a report.
func (c *Collector) Observe(r spectrum.Report) {
	c.AccessPoints.Set(float64(len(r.Points)))
	for _, l := range r.Loads {
		c.ChannelLoad.WithLabelValues(strconv.Itoa(int(l.Channel))).Set(l.Load)
	}
	c.Suggested.WithLabelValues("new").Set(first(r.NewNetwork))
	c.Suggested.WithLabelValues("current").Set(first(r.Staying))
}

// ObserveScan counts a scan pass.
func (c *Collector) ObserveScan(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Scans.WithLabelValues(result).Inc()
}

// Handler exposes the registry the collector was built against.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func first(cs []spectrum.Channel) float64 {
	if len(cs) == 0 {
		return 0
	}
	return float64(cs[0])
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
