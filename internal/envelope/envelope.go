// Package envelope defines the wire format carried over the broker between
// the HTTP/WebSocket front-end and the backend workers.
//
// Every request message the adapters publish is a JSON object with exactly
// two fields: the decoded request body (data) and the decoded query
// parameters (args); either is JSON null when absent. RPC replies use the
// separate Reply shape below. Workers and adapters agree on this shape without
// any further negotiation.
package envelope

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Envelope is the JSON object carried as the body of every broker message
// produced by this bridge.
type Envelope struct {
	Data json.RawMessage   `json:"data"`
	Args map[string]string `json:"args"`
}

// New builds an envelope from an already-decoded body and query map. Either
// may be nil; a nil Data or Args marshals to JSON null.
func New(data json.RawMessage, args map[string]string) *Envelope {
	return &Envelope{Data: data, Args: args}
}

// ToJSON serializes the envelope for publication on the broker.
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an envelope received from the broker.
func FromJSON(raw []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &e, nil
}

// ReplyError is the error shape surfaced to RPC callers and, ultimately, to
// HTTP clients: {"error": {"code": N, "description": "..."}}.
type ReplyError struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

// Reply is the JSON object an RPC worker publishes back to the reply
// exchange. Exactly one of Result or Error is meaningful; MarshalJSON
// flattens whichever is set to the top level of the wire message.
type Reply struct {
	Result json.RawMessage
	Error  *ReplyError
}

func (r Reply) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			Error *ReplyError `json:"error"`
		}{Error: r.Error})
	}
	if r.Result == nil {
		return []byte("{}"), nil
	}
	return r.Result, nil
}

// NewCorrelationID returns a fresh random 128-bit token rendered as
// lowercase hex, suitable for the AMQP correlation_id property and, in this
// implementation, also for the reply routing key (see internal/bridge).
func NewCorrelationID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate correlation id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
