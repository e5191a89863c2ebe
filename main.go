package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/taigrr/iwls/config"
	"github.com/taigrr/iwls/logging"
	"github.com/taigrr/iwls/render"
	"github.com/taigrr/iwls/scan"
	"github.com/taigrr/iwls/spectrum"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every command.
type options struct {
	configPath string
	iface      string
	band       string
	backend    string
}

// load reads the config file and environment, applies the flags and
// validates the result.
func (o options) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.iface != "" {
		cfg.Interface = o.iface
	}
	if o.band != "" {
		cfg.Band = o.band
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	return cfg, cfg.Validate()
}

func rootCmd() *cobra.Command {
	var (
		opts    options
		watch   bool
		suggest bool
	)

	cmd := &cobra.Command{
		Use:          "iwls",
		Short:        "List wireless access points and suggest the least congested channel",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.Log)
			return runList(cmd.Context(), cmd.OutOrStdout(), cfg, log, watch, suggest)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVarP(&opts.iface, "interface", "i", "", "wireless interface to scan with")
	pf.StringVarP(&opts.band, "band", "b", "", "channels to consider: 2.4 or all")
	pf.StringVar(&opts.backend, "backend", "", "scan backend: wpa or iw")

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rescan continuously")
	cmd.Flags().BoolVarP(&suggest, "suggest", "s", false, "suggest the best channels")

	cmd.AddCommand(agentCmd(&opts))
	cmd.AddCommand(historyCmd(&opts))
	cmd.AddCommand(versionCmd())
	return cmd
}

func runList(ctx context.Context, w io.Writer, cfg config.Config, log *logrus.Logger, watch, suggest bool) error {
	warnIfNotRoot(log)

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	band := cfg.SpectrumBand()
	p := render.New(w, band)
	if !watch {
		r, _ := survey(ctx, src, band, log)
		p.Report(r, suggest)
		return nil
	}

	every(ctx, cfg.WatchInterval, func(ctx context.Context) {
		r, _ := survey(ctx, src, band, log)
		if ctx.Err() != nil {
			return
		}
		render.ClearScreen(w)
		p.Report(r, suggest)
	})
	return nil
}

// survey runs one scan pass. A failed scan yields a report with no access
// points alongside the error.
func survey(ctx context.Context, src scan.Source, band spectrum.Band, log logrus.FieldLogger) (spectrum.Report, error) {
	records, err := scan.ScanWithRetry(ctx, src, log)
	points := spectrum.Normalize(records)
	current := ""
	if err == nil {
		current = scan.Current(ctx, src, log)
	}
	return band.Compose(points, current), err
}

// every runs fn until ctx is done, starting a pass each interval. A pass that
// overruns the interval is followed immediately by the next one.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	for {
		start := time.Now()
		fn(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func openSource(cfg config.Config) (scan.Source, error) {
	switch cfg.Backend {
	case config.BackendIW:
		return scan.NewIW(cfg.Interface), nil
	case config.BackendWPA:
		src, err := scan.DialWPA(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("opening wpa_supplicant control socket: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
	}
}

func warnIfNotRoot(log logrus.FieldLogger) {
	if os.Getuid() != 0 {
		log.Warn("running as normal user; it's recommended to run as root")
	}
}
