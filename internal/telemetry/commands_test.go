package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (c *fakeClient) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subErr != nil {
		return &doneToken{err: c.subErr}
	}
	c.subscribed = topic
	c.handler = cb
	return &doneToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = ""
	return &doneToken{}
}

func (c *fakeClient) deliver(payload string) bool {
	c.mu.Lock()
	cb := c.handler
	c.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(c, fakeMessage{payload: []byte(payload)})
	return true
}

type fakeMessage struct {
	mqtt.Message
	payload []byte
}

func (m fakeMessage) Payload() []byte { return m.payload }

func TestCommandHandler_Handle(t *testing.T) {
	p, _ := newTestPublisher(Config{})

	var started string
	var quality int
	var size string
	h := NewCommandHandler(p, Callbacks{
		OnGetStatus:   func() map[string]any { return map[string]any{"state": "running-manual"} },
		OnStartStream: func(url string) error { started = url; return nil },
		OnStop:        func() error { return errors.New("nothing running") },
		OnSetQuality: func(_ context.Context, q int) error {
			quality = q
			return nil
		},
		OnSetFrameSize: func(_ context.Context, name string) error {
			size = name
			return nil
		},
	})
	ctx := context.Background()

	resp := h.handle(ctx, Command{Command: "get_status"})
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "running-manual", resp.Data["state"])

	resp = h.handle(ctx, Command{Command: "start_stream", Params: map[string]any{"url": "http://cam/stream"}})
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "http://cam/stream", started)

	resp = h.handle(ctx, Command{Command: "set_quality", Params: map[string]any{"quality": float64(12)}})
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 12, quality)

	resp = h.handle(ctx, Command{Command: "set_quality", Params: map[string]any{"quality": 12.5}})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "must be an integer")

	resp = h.handle(ctx, Command{Command: "set_framesize", Params: map[string]any{"framesize": "vga"}})
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "vga", size)

	resp = h.handle(ctx, Command{Command: "stop"})
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "nothing running", resp.Error)

	resp = h.handle(ctx, Command{Command: "safe_mode"})
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "not supported", resp.Error)

	resp = h.handle(ctx, Command{Command: "reboot"})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "unknown command")

	t.Logf("✅ Commands dispatched to callbacks with success and error responses")
}

func TestCommandHandler_RunRespondsOnTopic(t *testing.T) {
	p, fc := newTestPublisher(Config{TopicPrefix: "esp32cam"})

	safe := make(chan struct{}, 1)
	h := NewCommandHandler(p, Callbacks{
		OnSafeMode: func() error { safe <- struct{}{}; return nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool { return fc.deliver(`{"command":"safe_mode"}`) },
		time.Second, 5*time.Millisecond)

	select {
	case <-safe:
	case <-time.After(time.Second):
		t.Fatal("safe_mode callback not invoked")
	}

	var resp Response
	require.Eventually(t, func() bool {
		for _, m := range fc.messages() {
			if m.topic == "esp32cam/control/response" {
				return json.Unmarshal(m.payload, &resp) == nil
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "safe_mode", resp.CommandAck)
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)

	cancel()
	require.NoError(t, <-done)

	fc.mu.Lock()
	assert.Empty(t, fc.subscribed, "unsubscribed on shutdown")
	fc.mu.Unlock()

	t.Logf("✅ Control command executed and acknowledged on %s", h.ResponseTopic())
}

func TestCommandHandler_InvalidJSON(t *testing.T) {
	p, fc := newTestPublisher(Config{})
	h := NewCommandHandler(p, Callbacks{})

	h.onMessage(fc, fakeMessage{payload: []byte("{not json")})

	msgs := fc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "gcs/control/response", msgs[0].topic)

	var resp Response
	require.NoError(t, json.Unmarshal(msgs[0].payload, &resp))
	assert.Equal(t, "unknown", resp.CommandAck)
	assert.Equal(t, "invalid JSON", resp.Error)
}

func TestCommandHandler_ResubscribesAfterReconnect(t *testing.T) {
	p, fc := newTestPublisher(Config{})

	stops := make(chan struct{}, 1)
	h := NewCommandHandler(p, Callbacks{
		OnStop: func() error { stops <- struct{}{}; return nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	subscribedTo := func(topic string) func() bool {
		return func() bool {
			fc.mu.Lock()
			defer fc.mu.Unlock()
			return fc.subscribed == topic
		}
	}
	require.Eventually(t, subscribedTo("gcs/control"), time.Second, 5*time.Millisecond)

	// A clean-session reconnect forgets every subscription.
	fc.mu.Lock()
	fc.subscribed = ""
	fc.handler = nil
	fc.mu.Unlock()
	p.onConnect(fc)

	require.Eventually(t, subscribedTo("gcs/control"), time.Second, 5*time.Millisecond)
	require.True(t, fc.deliver(`{"command":"stop"}`))

	select {
	case <-stops:
	case <-time.After(time.Second):
		t.Fatal("command not delivered after reconnect")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, p.subs, "subscription forgotten after shutdown")

	t.Logf("✅ control topic restored after reconnect")
}

func TestCommandHandler_SubscribeFailureStaysPending(t *testing.T) {
	p, fc := newTestPublisher(Config{})
	fc.subErr = errors.New("not connected")

	h := NewCommandHandler(p, Callbacks{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool {
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.subs["gcs/control"] != nil
	}, time.Second, 5*time.Millisecond)

	fc.mu.Lock()
	fc.subErr = nil
	fc.mu.Unlock()
	p.onConnect(fc)

	require.Eventually(t, func() bool {
		fc.mu.Lock()
		defer fc.mu.Unlock()
		return fc.subscribed == "gcs/control"
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
