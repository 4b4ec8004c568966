package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Command is an operator request received on <prefix>/control.
//
//	{"command": "start_stream", "params": {"url": "http://192.168.4.1:81/stream"}}
type Command struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// Response is published on <prefix>/control/response after every command.
type Response struct {
	CommandAck string         `json:"command_ack"`
	Status     string         `json:"status"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// Callbacks connect commands to the running station. A nil callback makes
// its command answer "not supported".
type Callbacks struct {
	OnGetStatus    func() map[string]any
	OnStartStream  func(url string) error // "" means the configured stream
	OnSafeMode     func() error
	OnStop         func() error
	OnSetQuality   func(ctx context.Context, quality int) error
	OnSetFrameSize func(ctx context.Context, name string) error
}

var errUnsupported = errors.New("not supported")

const commandQueue = 10

// CommandHandler listens for operator commands on the publisher's broker
// connection.
type CommandHandler struct {
	pub       *Publisher
	callbacks Callbacks
	log       *slog.Logger
	commands  chan Command
}

// NewCommandHandler creates a handler sharing pub's client and prefix.
func NewCommandHandler(pub *Publisher, callbacks Callbacks) *CommandHandler {
	return &CommandHandler{
		pub:       pub,
		callbacks: callbacks,
		log:       pub.log,
		commands:  make(chan Command, commandQueue),
	}
}

// ControlTopic returns <prefix>/control.
func (h *CommandHandler) ControlTopic() string { return h.pub.cfg.TopicPrefix + "/control" }

// ResponseTopic returns <prefix>/control/response.
func (h *CommandHandler) ResponseTopic() string { return h.pub.cfg.TopicPrefix + "/control/response" }

// Run subscribes to the control topic and executes commands one at a time
// until ctx is cancelled. The subscription survives broker reconnects.
func (h *CommandHandler) Run(ctx context.Context) error {
	if h.pub.client == nil {
		return ErrNotConnected
	}

	topic := h.ControlTopic()
	if err := h.pub.Subscribe(topic, h.onMessage); err != nil {
		// Stays registered; the next broker connect subscribes it.
		h.log.Warn("telemetry: control subscription pending", "topic", topic, "error", err)
	}
	h.log.Info("telemetry: control handler started", "topic", topic)

	defer func() {
		h.pub.Unsubscribe(topic)
		h.log.Info("telemetry: control handler stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-h.commands:
			resp := h.handle(ctx, cmd)
			if err := h.respond(resp); err != nil {
				h.log.Warn("telemetry: control response not published", "command", cmd.Command, "error", err)
			}
		}
	}
}

func (h *CommandHandler) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		h.log.Error("telemetry: failed to parse control command", "error", err)
		_ = h.respond(Response{CommandAck: "unknown", Status: "error", Error: "invalid JSON"})
		return
	}

	h.log.Info("telemetry: control command received", "command", cmd.Command)

	select {
	case h.commands <- cmd:
	default:
		h.log.Warn("telemetry: command queue full, dropping command", "command", cmd.Command)
	}
}

// handle executes one command and builds its response.
func (h *CommandHandler) handle(ctx context.Context, cmd Command) Response {
	resp := Response{CommandAck: cmd.Command, Status: "success"}
	cb := h.callbacks

	var err error
	switch cmd.Command {
	case "get_status":
		if cb.OnGetStatus == nil {
			err = errUnsupported
			break
		}
		resp.Data = cb.OnGetStatus()

	case "start_stream":
		if cb.OnStartStream == nil {
			err = errUnsupported
			break
		}
		url, _ := cmd.Params["url"].(string)
		err = cb.OnStartStream(url)

	case "safe_mode":
		if cb.OnSafeMode == nil {
			err = errUnsupported
			break
		}
		err = cb.OnSafeMode()

	case "stop":
		if cb.OnStop == nil {
			err = errUnsupported
			break
		}
		err = cb.OnStop()

	case "set_quality":
		if cb.OnSetQuality == nil {
			err = errUnsupported
			break
		}
		var q int
		if q, err = intParam(cmd.Params, "quality"); err == nil {
			err = cb.OnSetQuality(ctx, q)
			resp.Data = map[string]any{"quality": q}
		}

	case "set_framesize":
		if cb.OnSetFrameSize == nil {
			err = errUnsupported
			break
		}
		name, ok := cmd.Params["framesize"].(string)
		if !ok || name == "" {
			err = fmt.Errorf("missing parameter %q", "framesize")
			break
		}
		err = cb.OnSetFrameSize(ctx, name)
		resp.Data = map[string]any{"framesize": name}

	default:
		err = fmt.Errorf("unknown command %q", cmd.Command)
	}

	if err != nil {
		resp.Status = "error"
		resp.Error = err.Error()
		resp.Data = nil
		h.log.Warn("telemetry: control command failed", "command", cmd.Command, "error", err)
	}
	return resp
}

func (h *CommandHandler) respond(resp Response) error {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	token := h.pub.client.Publish(h.ResponseTopic(), h.pub.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("telemetry: publish timeout on %s", h.ResponseTopic())
	}
	return token.Error()
}

// intParam reads an integer parameter. JSON numbers arrive as float64.
func intParam(params map[string]any, key string) (int, error) {
	switch v := params[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("parameter %q must be an integer", key)
		}
		return int(v), nil
	case int:
		return v, nil
	case nil:
		return 0, fmt.Errorf("missing parameter %q", key)
	default:
		return 0, fmt.Errorf("parameter %q must be an integer", key)
	}
}
