package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/taigrr/iwls/config"
	"github.com/taigrr/iwls/history"
	"github.com/taigrr/iwls/logging"
	"github.com/taigrr/iwls/metrics"
	"github.com/taigrr/iwls/probe"
	"github.com/taigrr/iwls/scan"
	"github.com/taigrr/iwls/spectrum"
	"github.com/taigrr/iwls/types"
	"github.com/taigrr/iwls/upload"
)

func agentCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Record surveys and connectivity in the background and ship them upstream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.Log)
			warnIfNotRoot(log)
			return runAgent(cmd.Context(), cfg, log)
		},
	}
}

type agent struct {
	band    spectrum.Band
	log     logrus.FieldLogger
	source  scan.Source
	store   *history.Store
	metrics *metrics.Collector
	prober  *probe.Prober
	sink    upload.Sink
	now     func() time.Time

	// mu orders writes to the store against an upload, so a record is
	// stamped either before an upload collects or after it moves the
	// bookmark.
	mu sync.Mutex
}

func runAgent(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	store, err := history.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	sink, closeSink, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	a := &agent{
		band:    cfg.SpectrumBand(),
		log:     log,
		source:  src,
		store:   store,
		metrics: collector,
		prober: &probe.Prober{
			URL:         cfg.Probe.URL,
			PingHost:    cfg.Probe.PingHost,
			PingCount:   cfg.Probe.PingCount,
			PingTimeout: cfg.Probe.PingTimeout,
			Privileged:  os.Getuid() == 0,
		},
		sink: sink,
		now:  time.Now,
	}
	if _, ok := store.Start(); !ok {
		if err := store.SetStart(a.now()); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	run := func(interval time.Duration, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			every(ctx, interval, fn)
		}()
	}

	run(cfg.ScanInterval, a.scanPass)
	if cfg.Probe.URL != "" {
		run(cfg.Probe.Interval, a.probePass)
	}
	if sink != nil {
		run(cfg.Upload.Interval, a.uploadPass)
	} else {
		log.Info("no upload sink configured, history stays local")
	}
	if w, ok := src.(scan.Watcher); ok {
		events := w.Watch(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.watchLink(events)
		}()
	}
	if cfg.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.serveMetrics(ctx, cfg.MetricsAddr)
		}()
	}

	log.WithField("data_dir", cfg.DataDir).Info("agent started")
	<-ctx.Done()
	log.Info("signal received, shutting down")
	wg.Wait()
	return nil
}

func (a *agent) scanPass(ctx context.Context) {
	r, err := survey(ctx, a.source, a.band, a.log)
	if ctx.Err() != nil {
		return
	}
	a.metrics.ObserveScan(err)
	if err != nil {
		return
	}
	a.metrics.Observe(r)
	if err := a.record(types.FromReport(r, time.Time{})); err != nil {
		a.log.WithError(err).Error("recording survey")
	}
}

func (a *agent) probePass(ctx context.Context) {
	m, err := a.prober.Check(ctx, a.now())
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		a.log.WithError(err).Warn("ping failed")
	}
	if err := a.record(m); err != nil {
		a.log.WithError(err).Error("recording probe")
	}
}

// watchLink records association changes reported by the wireless stack until
// events is closed.
func (a *agent) watchLink(events <-chan scan.LinkEvent) {
	for ev := range events {
		a.log.WithFields(logrus.Fields{
			"event":     ev.Name,
			"connected": ev.Connected,
			"detail":    ev.Detail,
		}).Info("link changed")
		m := types.MetricSet{Connectivity: types.ConnectivityCollection{{Connected: ev.Connected}}}
		if err := a.record(m); err != nil {
			a.log.WithError(err).Error("recording link event")
		}
	}
}

// record stamps m with the current time and stores it.
func (a *agent) record(m types.MetricSet) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ts := a.now()
	m.Stamp(ts)
	return a.store.Record(m, ts)
}

// uploadPass ships everything recorded since the start bookmark. The bookmark
// only moves, and the shipped snapshots are only pruned, once the sink has
// accepted the batch.
func (a *agent) uploadPass(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	end := a.now().Truncate(time.Second)
	start, ok := a.store.Start()
	if !ok {
		start = end
	}
	if !start.Before(end) {
		return
	}

	m, err := a.store.Collect(a.band, start, end)
	if err != nil {
		a.log.WithError(err).Error("collecting history")
		return
	}
	log := a.log.WithFields(logrus.Fields{"start": start.Unix(), "end": end.Unix()})
	if !m.Empty() {
		if err := a.sink.Send(ctx, m); err != nil {
			log.WithError(err).Warn("upload failed, will retry")
			return
		}
		log.WithField("networks", len(m.Networks)).Info("history uploaded")
	}

	if err := a.store.Prune(start, end.Add(-time.Second)); err != nil {
		log.WithError(err).Error("pruning snapshots")
	}
	if err := a.store.SetStart(end); err != nil {
		log.WithError(err).Error("moving start bookmark")
	}
}

func (a *agent) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.WithError(err).Error("metrics server stopped")
	}
}

// openSinks builds the configured upload targets. It returns a nil sink when
// none is configured.
func openSinks(cfg config.Config) (upload.Sink, func(), error) {
	var sinks upload.Multi
	closeAll := func() {}

	if cfg.Upload.Endpoint != "" {
		sinks = append(sinks, &upload.Endpoint{
			URL:    cfg.Upload.Endpoint,
			APIKey: cfg.Upload.APIKey,
			Loop:   cfg.Upload.Loop,
			Client: &http.Client{Timeout: cfg.Upload.Timeout},
		})
	}
	if cfg.MQTT.Broker != "" {
		m, err := upload.DialMQTT(upload.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			Loop:     cfg.Upload.Loop,
			QoS:      byte(cfg.MQTT.QoS),
		})
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, m)
		closeAll = m.Close
	}

	switch len(sinks) {
	case 0:
		return nil, closeAll, nil
	case 1:
		return sinks[0], closeAll, nil
	}
	return sinks, closeAll, nil
}
