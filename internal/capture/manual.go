package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/mjpeg"
)

// ErrStreamEnded is returned by a manual attempt when the server closed the
// body cleanly.
var ErrStreamEnded = errors.New("capture: stream ended")

// StatusError is returned when the stream endpoint answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("capture: unexpected HTTP status %d", e.Code)
}

// ManualConfig tunes the manual chunked-HTTP strategy
type ManualConfig struct {
	ConnectTimeout time.Duration // TCP connect timeout (default: 5s)
	ReadTimeout    time.Duration // Max silence between reads (default: 60s)
	ChunkSize      int           // Bytes per read (default: 2048)
	Retry          RetryConfig   // Backoff between attempts (default: 3s, unlimited)

	// Client overrides the HTTP client. When nil one is built from
	// ConnectTimeout and ReadTimeout.
	Client *http.Client
}

// DefaultManualConfig returns the defaults for the manual strategy
func DefaultManualConfig() ManualConfig {
	return ManualConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    60 * time.Second,
		ChunkSize:      2048,
		Retry:          DefaultRetryConfig(),
	}
}

// NewHTTPClient builds a client with a bounded connect phase. The body has
// no overall deadline since MJPEG responses never finish.
func NewHTTPClient(connectTimeout, headerTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ResponseHeaderTimeout: headerTimeout,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       30 * time.Second,
		},
	}
}

// RunManual reads the MJPEG body itself and extracts frames by marker scan.
//
// An attempt ends on a connect error, non-2xx status, read error, read
// timeout or server close. One that delivered at least one frame resets the
// failure streak and reconnects at once; any other is retried after
// cfg.Retry.Delay.
//
// Returns OutcomeStopped on cancellation, or OutcomeFailed once
// cfg.Retry.MaxFailures consecutive attempts failed (never when it is 0).
func RunManual(ctx context.Context, url string, cfg ManualConfig, env Env) Outcome {
	env = env.withDefaults()
	log := env.Log.With("strategy", "manual", "url", url)

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultManualConfig().ReadTimeout
	}

	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout)
	}

	state := &RetryState{Retries: &env.Counters.Retries}
	attempt := func(ctx context.Context, state *RetryState) error {
		return readStream(ctx, client, url, cfg, env, state)
	}

	err := RunWithRetry(ctx, attempt, cfg.Retry, state, env.Clock, log)
	if ctx.Err() != nil {
		log.Debug("capture: manual strategy stopped")
		return OutcomeStopped
	}
	log.Warn("capture: manual strategy giving up", "error", err)
	return OutcomeFailed
}

// readStream performs one connection attempt and reads until the body ends.
func readStream(ctx context.Context, client *http.Client, url string, cfg ManualConfig, env Env, state *RetryState) error {
	atomic.AddUint64(&env.Counters.Attempts, 1)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("capture: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("capture: connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}

	env.Log.Info("capture: manual MJPEG stream started",
		"url", url,
		"content_type", resp.Header.Get("Content-Type"),
	)

	// Read deadline: the request is cancelled if no bytes arrive for
	// ReadTimeout. Reset after every successful read.
	var timedOut atomic.Bool
	idle := env.Clock.AfterFunc(cfg.ReadTimeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer idle.Stop()

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 2048
	}

	var acc mjpeg.Accumulator
	buf := make([]byte, chunkSize)
	produced := false

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			idle.Reset(cfg.ReadTimeout)
			atomic.AddUint64(&env.Counters.BytesRead, uint64(n))
			acc.Write(buf[:n])

			for {
				jpg, ok := acc.Next()
				if !ok {
					break
				}
				if env.decodeAndPublish(jpg, "manual") && !produced {
					produced = true
					ResetRetryState(state)
				}
			}
		}

		if rerr != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case timedOut.Load():
				return fmt.Errorf("capture: no data for %s", cfg.ReadTimeout)
			case errors.Is(rerr, io.EOF):
				return ErrStreamEnded
			default:
				return fmt.Errorf("capture: read: %w", rerr)
			}
		}
	}
}
