package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
)

// ProbeOptions holds probe command options
type ProbeOptions struct {
	Duration time.Duration
	Settle   time.Duration
}

func newProbeCommand(o *globalOptions) *cobra.Command {
	opts := &ProbeOptions{}

	cmd := &cobra.Command{
		Use:   "probe [url]",
		Short: "Measure stream cadence and stability",
		Long: `Start acquisition, wait for the first frame, then record frame arrivals
for --duration and report FPS mean, deviation, range, jitter and stability.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := o.cfg.Device.StreamURL()
			if len(args) == 1 {
				url = args[0]
			}
			return runProbe(cmd, o, opts, url)
		},
	}

	cmd.Flags().DurationVar(&opts.Duration, "duration", 5*time.Second, "Measurement window")
	cmd.Flags().DurationVar(&opts.Settle, "settle", 15*time.Second, "Max wait for the first frame")

	return cmd
}

func runProbe(cmd *cobra.Command, o *globalOptions, opts *ProbeOptions, url string) error {
	out := cmd.OutOrStdout()

	ccfg, err := o.controllerConfig(nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Settle+opts.Duration+5*time.Second)
	defer cancel()

	ctl := gcs.NewController(ctx, o.log, ccfg)
	defer ctl.Stop()

	printBanner(out, "Stream Probe", [][2]string{
		{"Stream URL", url},
		{"Duration", opts.Duration.String()},
	})

	if _, err := ctl.StartStream(url); err != nil {
		return err
	}

	fmt.Fprintf(out, "Waiting for the first frame (up to %s)...\n", opts.Settle)
	if err := waitFirstFrame(ctx, ctl, opts.Settle); err != nil {
		return err
	}

	fmt.Fprintf(out, "Running probe (%s) to measure stream stability...\n", opts.Duration)
	stats, err := gcs.MeasureCadence(ctx, ctl, opts.Duration, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	printWarmup(out, stats)
	if s, ok := ctl.Stats(); ok {
		printStats(out, s)
	}
	return nil
}

// waitFirstFrame polls until the producer has delivered a frame. The frame
// stays queued for the measurement.
func waitFirstFrame(ctx context.Context, ctl *gcs.Controller, limit time.Duration) error {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s, ok := ctl.Stats(); ok && s.FrameCount > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("no frame within %s", limit)
		case <-ticker.C:
		}
	}
}
