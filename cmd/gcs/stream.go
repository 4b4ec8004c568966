package main

import (
	"strconv"

	"github.com/spf13/cobra"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
)

// StreamOptions holds stream command options
type StreamOptions struct {
	serveOptions
	NoManaged   bool
	MaxFailures int
}

func newStreamCommand(o *globalOptions) *cobra.Command {
	opts := &StreamOptions{}

	cmd := &cobra.Command{
		Use:   "stream [url]",
		Short: "Acquire the MJPEG stream and relay it locally",
		Long: `Acquire the camera's MJPEG stream and re-broadcast it on /mjpeg.

The URL defaults to the configured device (http://192.168.4.1:81/stream).
Fallback candidates are derived from it. Each is tried first with the
managed GStreamer decoder (when available), then with manual chunked HTTP
reading.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := o.cfg.Device.StreamURL()
			if len(args) == 1 {
				url = args[0]
			}
			if opts.NoManaged {
				o.cfg.Acquisition.ManagedDecoder = false
			}
			if cmd.Flags().Changed("max-failures") {
				o.cfg.Acquisition.ManualMaxFailures = opts.MaxFailures
			}

			maxFailures := "unlimited"
			if n := o.cfg.Acquisition.ManualMaxFailures; n > 0 {
				maxFailures = strconv.Itoa(n)
			}
			banner := [][2]string{
				{"Stream URL", url},
				{"Device Host", o.cfg.Device.Host},
				{"Retry Backoff", o.cfg.Acquisition.RetryBackoff.String()},
				{"Max Failures", maxFailures},
			}

			return serve(cmd, o, &opts.serveOptions, "Stream Acquisition", banner, func(ctl *gcs.Controller) (*gcs.Session, error) {
				return ctl.StartStream(url)
			})
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.NoManaged, "no-managed", false, "Skip the GStreamer decoder, use manual reading only")
	cmd.Flags().IntVar(&opts.MaxFailures, "max-failures", 0, "Consecutive manual failures before rotating candidates (0 = never)")

	return cmd
}

func newSafeCommand(o *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "safe",
		Short: "Poll still captures for weak links (safe mode)",
		Long: `Poll the camera's /capture endpoint at a fixed interval (default 400ms)
and relay the stills on /mjpeg. Use this when the link is too weak to
carry the continuous stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			banner := [][2]string{
				{"Capture URL", "http://" + o.cfg.Device.Host + "/capture"},
				{"Interval", o.cfg.SafeMode.Interval.String()},
			}
			return serve(cmd, o, opts, "Safe Mode", banner, func(ctl *gcs.Controller) (*gcs.Session, error) {
				return ctl.StartSafeMode()
			})
		},
	}

	opts.bind(cmd)
	return cmd
}
