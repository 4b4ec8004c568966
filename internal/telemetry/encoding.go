package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
)

// Encoding selects the payload format
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding accepts "json" (also the empty string) or "msgpack".
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("telemetry: unknown encoding %q (want json or msgpack)", s)
	}
}

// Marshal encodes v with the selected encoding.
func (e Encoding) Marshal(v any) ([]byte, error) {
	switch e {
	case EncodingMsgpack:
		return msgpack.Marshal(v)
	default:
		return json.Marshal(v)
	}
}

// StateMessage is the payload published on every supervisor transition
type StateMessage struct {
	SessionID string    `json:"session_id" msgpack:"session_id"`
	From      string    `json:"from" msgpack:"from"`
	To        string    `json:"to" msgpack:"to"`
	Candidate string    `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
	At        time.Time `json:"at" msgpack:"at"`
}

// NewStateMessage converts a transition into its wire form.
func NewStateMessage(c gcs.StateChange) StateMessage {
	return StateMessage{
		SessionID: c.SessionID,
		From:      c.From.String(),
		To:        c.To.String(),
		Candidate: c.Candidate,
		At:        c.At.UTC(),
	}
}
