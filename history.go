package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/taigrr/iwls/history"
	"github.com/taigrr/iwls/spectrum"
	"github.com/taigrr/iwls/types"
)

func historyCmd(opts *options) *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize what the agent recorded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			end := time.Now().Add(time.Second)
			band := cfg.SpectrumBand()
			m, err := store.Collect(band, end.Add(-since), end)
			if err != nil {
				return err
			}
			counts, err := store.AccessPointCounts(end.Add(-since), end)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), band, m, len(counts))
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	return cmd
}

func printHistory(w io.Writer, band spectrum.Band, m types.MetricSet, passes int) {
	fmt.Fprintf(w, "Recorded scans: %d\n", passes)
	if passes > 0 {
		fmt.Fprintf(w, "Average channels load: %s\n", spectrum.Summary(averageLoads(band, m.Loads)))
	}
	if len(m.Connectivity) > 0 {
		fmt.Fprintf(w, "Connected: %s of %d checks\n", spectrum.Percent(uptime(m.Connectivity)), len(m.Connectivity))
	}
	if len(m.Pings) > 0 {
		fmt.Fprintf(w, "Average ping: %s\n", meanRTT(m.Pings))
	}
}

// averageLoads folds recorded samples into one mean load per channel of band.
func averageLoads(band spectrum.Band, loads types.ChannelLoadCollection) []spectrum.ChannelLoad {
	if band.MaxChannel < spectrum.MinChannel {
		return nil
	}
	sums := make([]float64, band.MaxChannel)
	counts := make([]int, band.MaxChannel)
	for _, l := range loads {
		c := spectrum.Channel(l.Channel)
		if !band.Valid(c) {
			continue
		}
		sums[c-1] += l.Load
		counts[c-1]++
	}
	out := make([]spectrum.ChannelLoad, len(sums))
	for i := range sums {
		out[i].Channel = spectrum.Channel(i + 1)
		if counts[i] > 0 {
			out[i].Load = sums[i] / float64(counts[i])
		}
	}
	return out
}

func uptime(cs types.ConnectivityCollection) float64 {
	if len(cs) == 0 {
		return 0
	}
	up := 0
	for _, c := range cs {
		if c.Connected {
			up++
		}
	}
	return float64(up) / float64(len(cs))
}

func meanRTT(ps types.PingCollection) time.Duration {
	if len(ps) == 0 {
		return 0
	}
	var total int64
	for _, p := range ps {
		total += p.RTT
	}
	return time.Duration(total/int64(len(ps))) * time.Microsecond
}
