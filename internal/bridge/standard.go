package bridge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/broker"
	"github.com/BenediktSeidl/fpesa/internal/schema"
)

const (
	messagesPath = "/messages/"
)

var (
	messagesPostDataSchema = []byte(`{"type": "object"}`)
	messagesGetArgsSchema  = []byte(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["offset", "limit"],
		"properties": {
			"offset":       {"type": "string", "pattern": "^[0-9]+$"},
			"limit":        {"type": "string", "pattern": "^[0-9]+$"},
			"paginationId": {"type": "string", "pattern": "^[0-9]+$"}
		}
	}`)
)

// StandardEndpoints declares the bridge's shipped configuration from §6:
// POST /messages/ (fire-and-forget) and GET /messages/ (request/response).
// Endpoints are returned unbound; call BindAdapters before serving.
func StandardEndpoints() ([]*Endpoint, error) {
	dataSchema, err := schema.Compile(messagesPostDataSchema)
	if err != nil {
		return nil, fmt.Errorf("compile messages POST data schema: %w", err)
	}
	argsSchema, err := schema.Compile(messagesGetArgsSchema)
	if err != nil {
		return nil, fmt.Errorf("compile messages GET args schema: %w", err)
	}

	return []*Endpoint{
		{Path: messagesPath, Method: "POST", Kind: FireAndForget, DataSchema: dataSchema},
		{Path: messagesPath, Method: "GET", Kind: RequestResponse, ArgsSchema: argsSchema},
	}, nil
}

// BindAdapters initializes and binds the broker-backed adapter for each
// endpoint according to its declared Kind.
func BindAdapters(gw *broker.Gateway, log *zap.Logger, endpoints []*Endpoint) error {
	for _, ep := range endpoints {
		switch ep.Kind {
		case FireAndForget:
			adapter, err := NewFireForgetAdapter(gw, ep.Name())
			if err != nil {
				return fmt.Errorf("init fire-and-forget adapter for %s: %w", ep.Name(), err)
			}
			ep.Bind(adapter)
		case RequestResponse:
			adapter, err := NewRequestResponseAdapter(gw, ep.Name(), log)
			if err != nil {
				return fmt.Errorf("init request/response adapter for %s: %w", ep.Name(), err)
			}
			ep.Bind(adapter)
		default:
			return fmt.Errorf("endpoint %s has unknown adapter kind", ep.Name())
		}
	}
	return nil
}
