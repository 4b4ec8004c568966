package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/config"
)

// Version information
const version = "v0.1.0"

// globalOptions holds flags shared by every command
type globalOptions struct {
	ConfigPath string
	Host       string
	Debug      bool
	LogFormat  string

	cfg *config.Config
	log *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "gcs",
		Short: "ESP32-CAM ground control station",
		Long: `gcs acquires video from an ESP32 camera over HTTP, surviving stalls,
disconnects and protocol downgrades, and re-broadcasts it locally as MJPEG.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&opts.Host, "host", "", "Camera address (overrides device.host)")
	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "Log format: text, json")

	root.AddCommand(
		newStreamCommand(opts),
		newSafeCommand(opts),
		newProbeCommand(opts),
		newControlCommand(opts),
		newVersionCommand(),
	)
	return root
}

// init loads configuration and installs the logger.
func (o *globalOptions) init(stderr io.Writer) error {
	logger, err := newLogger(stderr, o.LogFormat, o.Debug)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	o.log = logger

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.Host != "" {
		cfg.Device.Host = o.Host
	}
	o.cfg = cfg
	return nil
}

func newLogger(w io.Writer, format string, debug bool) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (must be text or json)", format)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading for version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gcs %s\n", version)
		},
	}
}
