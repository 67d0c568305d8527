// Package bridge implements the request-to-bus mapping runtime: endpoint
// declarations, the two adapter state machines, and the HTTP dispatcher that
// ties them together.
package bridge

import (
	"context"
	"encoding/json"

	"github.com/BenediktSeidl/fpesa/internal/schema"
)

// Kind distinguishes the two adapter state machines an endpoint can bind.
type Kind int

const (
	// FireAndForget publishes onto a fanout exchange without awaiting a reply.
	FireAndForget Kind = iota
	// RequestResponse publishes an RPC request and awaits its correlated reply.
	RequestResponse
)

// Adapter is the behavior an Endpoint invokes once validation has passed. It
// returns the JSON value to serialize as the HTTP 200 body, or an *Error.
type Adapter interface {
	Adapt(ctx context.Context, data json.RawMessage, args map[string]string) (json.RawMessage, error)
}

// Endpoint is an immutable declaration of one (path, method) pair: which
// adapter handles it and which schemas gate its body and query parameters.
// A nil schema means that part of the request must be empty.
type Endpoint struct {
	Path       string
	Method     string
	Kind       Kind
	DataSchema *schema.Schema
	ArgsSchema *schema.Schema

	adapter Adapter
}

// Name derives the wire-visible exchange/queue name for this endpoint:
// path + ":" + method, e.g. "/messages/:POST".
func (e *Endpoint) Name() string {
	return e.Path + ":" + e.Method
}

// Bind attaches the adapter instance this endpoint dispatches to once the
// adapter's broker resources have been initialized.
func (e *Endpoint) Bind(a Adapter) {
	e.adapter = a
}
