package main

import (
	"context"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/device"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/gstdecode"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/telemetry"
)

// deviceClient builds the control-plane client (connect 5s, request 10s by default).
func (o *globalOptions) deviceClient() (*device.Client, error) {
	hc := device.NewHTTPClient(o.cfg.Acquisition.ConnectTimeout.D(), o.cfg.SafeMode.RequestTimeout.D())
	return device.NewClient(o.cfg.Device.Host, device.WithHTTPClient(hc))
}

// controllerConfig maps the file configuration onto the library's.
// onState may be nil.
func (o *globalOptions) controllerConfig(onState func(gcs.StateChange)) (gcs.ControllerConfig, error) {
	a := o.cfg.Acquisition

	acq := gcs.DefaultAcquisitionConfig()
	acq.DeviceHost = o.cfg.Device.Host
	if o.cfg.Device.StreamPort != 0 {
		acq.AltPort = o.cfg.Device.StreamPort
	}
	acq.FirstFrameTimeout = a.FirstFrameTimeout.D()
	acq.ConnectTimeout = a.ConnectTimeout.D()
	acq.ReadTimeout = a.ReadTimeout.D()
	acq.ChunkSize = a.ChunkSize
	acq.RetryBackoff = a.RetryBackoff.D()
	acq.ManualMaxFailures = a.ManualMaxFailures
	acq.OnStateChange = onState

	if a.ManagedDecoder {
		// NewDecoder returns a nil *Decoder without GStreamer; keep the
		// interface nil in that case so the supervisor skips the managed path.
		if d := gstdecode.NewDecoder(); d != nil {
			acq.Decoder = d
		}
	}

	client, err := o.deviceClient()
	if err != nil {
		return gcs.ControllerConfig{}, err
	}

	return gcs.ControllerConfig{
		Acquisition: acq,
		SafeMode: gcs.SafeModeConfig{
			Interval:      o.cfg.SafeMode.Interval.D(),
			Snapshotter:   client,
			OnStateChange: onState,
		},
		SinkCapacity: a.SinkCapacity,
		StopTimeout:  a.StopTimeout.D(),
	}, nil
}

// telemetryPublisher connects to the configured broker, or returns nil when
// telemetry is disabled. A failed connect is logged; the client keeps
// retrying in the background.
func (o *globalOptions) telemetryPublisher(ctx context.Context) (*telemetry.Publisher, error) {
	t := o.cfg.Telemetry
	if !t.Enabled() {
		return nil, nil
	}

	enc, err := telemetry.ParseEncoding(t.Encoding)
	if err != nil {
		return nil, err
	}

	pub := telemetry.NewPublisher(telemetry.Config{
		Broker:        t.Broker,
		ClientID:      t.ClientID,
		TopicPrefix:   t.TopicPrefix,
		Encoding:      enc,
		QoS:           t.QoS,
		StatsInterval: t.StatsInterval.D(),
	}, o.log)

	if err := pub.Connect(ctx); err != nil {
		o.log.Warn("telemetry: broker not reachable yet, continuing", "error", err)
	}
	return pub, nil
}

// commandCallbacks maps remote operator commands onto the controller and the
// device control plane.
func (o *globalOptions) commandCallbacks(ctl *gcs.Controller) (telemetry.Callbacks, error) {
	client, err := o.deviceClient()
	if err != nil {
		return telemetry.Callbacks{}, err
	}

	return telemetry.Callbacks{
		OnGetStatus: func() map[string]any {
			s, ok := ctl.Stats()
			if !ok {
				return map[string]any{"state": "idle"}
			}
			return map[string]any{
				"session_id":  s.SessionID,
				"kind":        string(s.Kind),
				"state":       s.State,
				"candidate":   s.Candidate,
				"frame_count": s.FrameCount,
				"fps":         s.FPS,
			}
		},
		OnStartStream: func(url string) error {
			if url == "" {
				url = o.cfg.Device.StreamURL()
			}
			_, err := ctl.StartStream(url)
			return err
		},
		OnSafeMode: func() error {
			_, err := ctl.StartSafeMode()
			return err
		},
		OnStop: ctl.Stop,
		OnSetQuality: func(ctx context.Context, q int) error {
			return client.SetQuality(ctx, q)
		},
		OnSetFrameSize: func(ctx context.Context, name string) error {
			size, err := device.ParseFrameSize(name)
			if err != nil {
				return err
			}
			return client.SetFrameSize(ctx, size)
		},
	}, nil
}
