package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
)

// ErrNotConnected is returned by publishes while the broker link is down.
var ErrNotConnected = errors.New("telemetry: mqtt not connected")

const publishTimeout = 2 * time.Second

// Config contains MQTT publisher settings
type Config struct {
	Broker         string        // e.g. tcp://localhost:1883
	ClientID       string        // default: gcs-<random>
	TopicPrefix    string        // default: gcs
	Encoding       Encoding      // default: json
	QoS            byte          // default: 0
	StatsInterval  time.Duration // default: 5s
	ConnectTimeout time.Duration // default: 5s
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = "gcs-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "gcs"
	}
	if c.Encoding == "" {
		c.Encoding = EncodingJSON
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = 5 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	return c
}

// Publisher sends state transitions and periodic stats to an MQTT broker
type Publisher struct {
	cfg    Config
	log    *slog.Logger
	client mqtt.Client

	mu        sync.RWMutex
	published map[string]uint64 // count per topic
	errors    uint64
	connected bool
	subs      map[string]mqtt.MessageHandler // restored on every (re)connect
}

// NewPublisher creates a publisher. Nothing is dialled until Connect.
func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:       cfg.withDefaults(),
		log:       logger,
		published: make(map[string]uint64),
		subs:      make(map[string]mqtt.MessageHandler),
	}
}

// Connect establishes the broker connection with auto-reconnect enabled.
//
// A timeout is returned as an error but the client keeps retrying in the
// background; publishes fail with ErrNotConnected until it succeeds.
func (p *Publisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = p.onConnect
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.setConnected(false)
		p.log.Warn("telemetry: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", p.cfg.Broker,
		)
	}

	p.client = mqtt.NewClient(opts)
	p.log.Info("telemetry: connecting to mqtt broker", "broker", p.cfg.Broker)

	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-time.After(p.cfg.ConnectTimeout):
		return fmt.Errorf("telemetry: mqtt connection timeout after %v", p.cfg.ConnectTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: mqtt connection failed: %w", err)
	}

	p.setConnected(true)
	return nil
}

// onConnect runs on the initial connect and after every auto-reconnect.
// The broker starts a clean session each time, so subscriptions are
// re-issued. Tokens are not waited on inside the paho callback.
func (p *Publisher) onConnect(c mqtt.Client) {
	p.setConnected(true)
	p.log.Info("telemetry: mqtt connection established",
		"broker", p.cfg.Broker,
		"client_id", p.cfg.ClientID,
	)

	p.mu.RLock()
	subs := make(map[string]mqtt.MessageHandler, len(p.subs))
	for topic, h := range p.subs {
		subs[topic] = h
	}
	p.mu.RUnlock()

	for topic, h := range subs {
		token := c.Subscribe(topic, p.cfg.QoS, h)
		go func(topic string) {
			if token.WaitTimeout(publishTimeout) && token.Error() != nil {
				p.log.Warn("telemetry: resubscribe failed", "topic", topic, "error", token.Error())
				return
			}
			p.log.Debug("telemetry: resubscribed", "topic", topic)
		}(topic)
	}
}

// Subscribe subscribes handler to topic and keeps it subscribed across
// reconnects until Unsubscribe.
func (p *Publisher) Subscribe(topic string, handler mqtt.MessageHandler) error {
	if p.client == nil {
		return ErrNotConnected
	}

	p.mu.Lock()
	p.subs[topic] = handler
	p.mu.Unlock()

	token := p.client.Subscribe(topic, p.cfg.QoS, handler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("telemetry: subscription to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: subscription to %s failed: %w", topic, err)
	}
	return nil
}

// Unsubscribe drops topic and stops restoring it on reconnect.
func (p *Publisher) Unsubscribe(topic string) {
	p.mu.Lock()
	delete(p.subs, topic)
	p.mu.Unlock()

	if p.client != nil && p.client.IsConnected() {
		p.client.Unsubscribe(topic).WaitTimeout(publishTimeout)
	}
}

// StateTopic returns <prefix>/<session>/state.
func (p *Publisher) StateTopic(sessionID string) string {
	return fmt.Sprintf("%s/%s/state", p.cfg.TopicPrefix, sessionID)
}

// StatsTopic returns <prefix>/<session>/stats.
func (p *Publisher) StatsTopic(sessionID string) string {
	return fmt.Sprintf("%s/%s/stats", p.cfg.TopicPrefix, sessionID)
}

// PublishState publishes one transition (retained, so late subscribers see
// the current state).
func (p *Publisher) PublishState(c gcs.StateChange) error {
	return p.publish(p.StateTopic(c.SessionID), true, NewStateMessage(c))
}

// PublishStats publishes a Stats snapshot.
func (p *Publisher) PublishStats(s gcs.Stats) error {
	return p.publish(p.StatsTopic(s.SessionID), false, s)
}

// OnStateChange adapts PublishState to the supervisor observer hook.
// Failures are logged; the supervisor is never slowed by the broker.
func (p *Publisher) OnStateChange(c gcs.StateChange) {
	go func() {
		if err := p.PublishState(c); err != nil {
			p.log.Debug("telemetry: state not published", "to", c.To.String(), "error", err)
		}
	}()
}

// Run publishes src's stats every StatsInterval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, src gcs.FrameSource) error {
	ticker := time.NewTicker(p.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, ok := src.Stats()
			if !ok {
				continue
			}
			if err := p.PublishStats(stats); err != nil {
				p.log.Warn("telemetry: stats not published", "error", err)
			}
		}
	}
}

func (p *Publisher) publish(topic string, retained bool, v any) error {
	if !p.isConnected() {
		p.countError()
		return ErrNotConnected
	}

	payload, err := p.cfg.Encoding.Marshal(v)
	if err != nil {
		p.countError()
		return fmt.Errorf("telemetry: encode %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.cfg.QoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.countError()
		return fmt.Errorf("telemetry: publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		p.countError()
		return fmt.Errorf("telemetry: publish failed: %w", err)
	}

	p.mu.Lock()
	p.published[topic]++
	p.mu.Unlock()

	p.log.Debug("telemetry: published", "topic", topic, "size", len(payload))
	return nil
}

// Disconnect closes the MQTT connection
func (p *Publisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.log.Info("telemetry: mqtt disconnected")
	}
	p.setConnected(false)
}

// Stats contains publisher statistics
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

// Stats returns publisher statistics
func (p *Publisher) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	published := make(map[string]uint64, len(p.published))
	for k, v := range p.published {
		published[k] = v
	}
	return Stats{
		Connected: p.connected,
		Published: published,
		Errors:    p.errors,
	}
}

func (p *Publisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *Publisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}
