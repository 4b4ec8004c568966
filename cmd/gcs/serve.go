package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/relay"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/telemetry"
)

// serveOptions holds flags shared by stream and safe
type serveOptions struct {
	Listen        string
	StatsInterval time.Duration
}

func (s *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.Listen, "listen", "", "Relay HTTP address (overrides relay.listen)")
	cmd.Flags().DurationVar(&s.StatsInterval, "stats-interval", 10*time.Second, "Interval between console stats reports (0 disables)")
}

// starter launches the producer a command is about.
type starter func(ctl *gcs.Controller) (*gcs.Session, error)

// serve runs one producer behind the relay until interrupted. The
// producer, the relay consumer, the HTTP server, telemetry and the console
// reporter all share one errgroup.
func serve(cmd *cobra.Command, o *globalOptions, so *serveOptions, title string, banner [][2]string, start starter) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	log := o.log

	pub, err := o.telemetryPublisher(ctx)
	if err != nil {
		return err
	}
	var onState func(gcs.StateChange)
	if pub != nil {
		defer pub.Disconnect()
		onState = pub.OnStateChange
	}

	ccfg, err := o.controllerConfig(onState)
	if err != nil {
		return err
	}
	ctl := gcs.NewController(ctx, log, ccfg)
	defer func() {
		if err := ctl.Stop(); err != nil {
			log.Warn("gcs: producer did not stop cleanly", "error", err)
		}
	}()

	listen := o.cfg.Relay.Listen
	if so.Listen != "" {
		listen = so.Listen
	}

	managed := "off"
	if ccfg.Acquisition.Decoder != nil {
		managed = "gstreamer"
	}
	banner = append(banner,
		[2]string{"Managed Decoder", managed},
		[2]string{"Relay", "http://" + displayAddr(listen) + "/mjpeg"},
		[2]string{"Telemetry", telemetryLabel(o)},
	)
	printBanner(out, title, banner)

	session, err := start(ctl)
	if err != nil {
		return fmt.Errorf("failed to start producer: %w", err)
	}
	log.Info("gcs: producer started", "session", session.ID(), "kind", string(session.Kind()))

	rl := relay.New(ctl, relay.Config{
		Tick:        o.cfg.Relay.Tick.D(),
		JPEGQuality: o.cfg.Relay.JPEGQuality,
	}, log)
	srv := &http.Server{
		Addr:              listen,
		Handler:           rl.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(out, "Press Ctrl+C to stop gracefully\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n\n")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return rl.Run(gctx) })

	g.Go(func() error {
		log.Info("relay: listening", "addr", listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		rl.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if pub != nil {
		callbacks, err := o.commandCallbacks(ctl)
		if err != nil {
			return err
		}
		commands := telemetry.NewCommandHandler(pub, callbacks)

		g.Go(func() error { return pub.Run(gctx, ctl) })
		g.Go(func() error {
			// Remote control is optional; the stream keeps running without it.
			if err := commands.Run(gctx); err != nil {
				log.Warn("telemetry: remote control unavailable", "error", err)
			}
			return nil
		})
	}

	if so.StatsInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(so.StatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if stats, ok := ctl.Stats(); ok {
						printStats(out, stats)
					}
				}
			}
		})
	}

	err = g.Wait()

	fmt.Fprintf(out, "\n\nShutting down...\n")
	if stats, ok := ctl.Stats(); ok {
		printStats(out, stats)
	}
	consumer := rl.Stats()
	fmt.Fprintf(out, "  Relayed Frames:     %d\n", consumer.Frames)
	fmt.Fprintf(out, "  Consumer FPS:       %.2f fps\n\n", consumer.FPS)

	return err
}

func displayAddr(listen string) string {
	if len(listen) > 0 && listen[0] == ':' {
		return "localhost" + listen
	}
	return listen
}

func telemetryLabel(o *globalOptions) string {
	if !o.cfg.Telemetry.Enabled() {
		return "off"
	}
	return fmt.Sprintf("%s (%s/<session>/*, %s)", o.cfg.Telemetry.Broker, o.cfg.Telemetry.TopicPrefix, o.cfg.Telemetry.Encoding)
}
