// Package protocol defines the frames exchanged over the scoreboard
// websocket. Every frame is a JSON object {"event": ..., "data": ...}.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Seednode/scoreboard/document"
)

// Client → server.
const (
	RequestLatest = "request-latest-data"
	SaveData      = "save-data"
	ClearData     = "clear-data"
)

// Server → client.
const (
	OperationStart = "operation:start"
	OperationEnd   = "operation:end"
	OperationError = "operation:error"
	LatestData     = "latest-data" // unicast to the requester
	SaveComplete   = "save-complete"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SavePayload struct {
	Data    document.Document `json:"data"`
	Message string            `json:"message"`
}

type OperationPayload struct {
	Message string `json:"message"`
}

type SaveCompletePayload struct {
	OK bool `json:"ok"`
}

// Encode wraps payload in an envelope. A nil payload is sent without data.
func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = data
	}

	return json.Marshal(env)
}

// DecodeData unmarshals the envelope payload into v.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing data", e.Event)
	}

	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: %w", e.Event, err)
	}

	return nil
}
