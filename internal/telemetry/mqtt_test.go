package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
)

type message struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes. Only the methods the publisher calls are
// implemented; the embedded interface panics on anything else.
type fakeClient struct {
	mqtt.Client

	mu         sync.Mutex
	msgs       []message
	err        error
	subscribed string
	handler    mqtt.MessageHandler
	subErr     error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, message{topic: topic, retained: retained, payload: payload.([]byte)})
	return &doneToken{err: c.err}
}

func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) Disconnect(quiesce uint) {}

func (c *fakeClient) messages() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message(nil), c.msgs...)
}

type doneToken struct{ err error }

func (t *doneToken) Wait() bool { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *doneToken) Error() error { return t.err }

type stubSource struct{ stats gcs.Stats }

func (s stubSource) TryFrame() (gcs.Frame, bool) { return gcs.Frame{}, false }
func (s stubSource) Stats() (gcs.Stats, bool) { return s.stats, s.stats.SessionID != "" }

func newTestPublisher(cfg Config) (*Publisher, *fakeClient) {
	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	fc := &fakeClient{}
	p.client = fc
	p.setConnected(true)
	return p, fc
}

func TestPublisher_StateTopicAndJSONPayload(t *testing.T) {
	p, fc := newTestPublisher(Config{TopicPrefix: "esp32cam"})

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := p.PublishState(gcs.StateChange{
		SessionID: "abc",
		From:      gcs.StateRunningManagedDecoder,
		To:        gcs.StateRunningManual,
		Candidate: "http://192.168.4.1:81/stream",
		At:        at,
	})
	require.NoError(t, err)

	msgs := fc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "esp32cam/abc/state", msgs[0].topic)
	assert.True(t, msgs[0].retained)

	var got StateMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, "running-managed-decoder", got.From)
	assert.Equal(t, "running-manual", got.To)
	assert.True(t, at.Equal(got.At))

	assert.Equal(t, uint64(1), p.Stats().Published["esp32cam/abc/state"])
}

func TestPublisher_MsgpackStats(t *testing.T) {
	p, fc := newTestPublisher(Config{Encoding: EncodingMsgpack})

	require.NoError(t, p.PublishStats(gcs.Stats{SessionID: "s1", FrameCount: 42, State: "running-manual"}))

	msgs := fc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "gcs/s1/stats", msgs[0].topic)
	assert.False(t, msgs[0].retained)

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(msgs[0].payload, &decoded))
	assert.EqualValues(t, 42, decoded["frame_count"])
	assert.Equal(t, "running-manual", decoded["state"])
}

func TestPublisher_FailuresAreCounted(t *testing.T) {
	p, fc := newTestPublisher(Config{})

	fc.err = errors.New("broker rejected")
	assert.ErrorContains(t, p.PublishStats(gcs.Stats{SessionID: "s"}), "broker rejected")

	p.setConnected(false)
	assert.ErrorIs(t, p.PublishStats(gcs.Stats{SessionID: "s"}), ErrNotConnected)

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.Errors)
	assert.False(t, stats.Connected)
}

func TestPublisher_RunPublishesPeriodically(t *testing.T) {
	p, fc := newTestPublisher(Config{StatsInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, stubSource{stats: gcs.Stats{SessionID: "live"}}) }()

	require.Eventually(t, func() bool { return len(fc.messages()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, m := range fc.messages() {
		assert.Equal(t, "gcs/live/stats", m.topic)
	}
}

func TestPublisher_RunSkipsIdleSource(t *testing.T) {
	p, fc := newTestPublisher(Config{StatsInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx, stubSource{}))
	assert.Empty(t, fc.messages())
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, enc)

	enc, err = ParseEncoding("msgpack")
	require.NoError(t, err)
	assert.Equal(t, EncodingMsgpack, enc)

	_, err = ParseEncoding("cbor")
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "gcs", cfg.TopicPrefix)
	assert.Equal(t, EncodingJSON, cfg.Encoding)
	assert.Regexp(t, `^gcs-[0-9a-f]{8}$`, cfg.ClientID)
	assert.Equal(t, 5*time.Second, cfg.StatsInterval)
}
