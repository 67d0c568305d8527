package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RPCTimeout bounds how long the dispatcher waits for an adapter to produce
// a result. Per §4.4, the caller's overall deadline bounds the wait; this is
// the deadline attached to every request, mirroring the 30-second wait the
// teacher's client.broker.call() imposes on its own request/response round
// trip. A request that already carries a shorter deadline keeps it.
const RPCTimeout = 30 * time.Second

// Dispatcher is C5: it routes HTTP requests to declared endpoints,
// validates their body and query per §4.2, invokes the matching adapter,
// and guarantees every response body is valid JSON.
type Dispatcher struct {
	router chi.Router
	log    *zap.Logger
}

// NewDispatcher builds an empty dispatcher. Register endpoints with
// RegisterEndpoint before serving.
func NewDispatcher(log *zap.Logger) *Dispatcher {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	return &Dispatcher{router: r, log: log}
}

// ServeHTTP makes Dispatcher an http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.router.ServeHTTP(w, r)
}

// RegisterEndpoint wires one declared, already-bound endpoint into the
// router. The endpoint must already have its adapter bound via Endpoint.Bind.
func (d *Dispatcher) RegisterEndpoint(ep *Endpoint) {
	d.router.MethodFunc(ep.Method, ep.Path, d.handler(ep))
}

func (d *Dispatcher) handler(ep *Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := d.validateBody(ep, r)
		if err != nil {
			d.writeError(w, err)
			return
		}

		args, err := d.validateArgs(ep, r)
		if err != nil {
			d.writeError(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), RPCTimeout)
		defer cancel()

		result, err := ep.adapter.Adapt(ctx, data, args)
		if err != nil {
			d.writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if result == nil {
			_, _ = w.Write([]byte("{}"))
			return
		}
		_, _ = w.Write(result)
	}
}

// validateBody applies the §4.2 body gate: no schema means the body must be
// empty; a schema present means the body must parse as JSON and validate.
func (d *Dispatcher) validateBody(ep *Endpoint, r *http.Request) (json.RawMessage, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, RequestInvalid(fmt.Sprintf("Can not read request body: %s", err))
	}

	if ep.DataSchema == nil {
		if len(raw) != 0 {
			return nil, RequestInvalid("No request data allowed")
		}
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, RequestInvalid(fmt.Sprintf("Can not parse request body as JSON: %s", err))
	}
	if verr := ep.DataSchema.Validate(decoded); verr != nil {
		return nil, RequestInvalid(verr.Description)
	}
	return json.RawMessage(raw), nil
}

// validateArgs applies the same two gates to the query string, modeled as a
// map<string,string> per the spec's design note on dynamic request args.
func (d *Dispatcher) validateArgs(ep *Endpoint, r *http.Request) (map[string]string, error) {
	query := r.URL.Query()

	if ep.ArgsSchema == nil {
		if len(query) != 0 {
			return nil, RequestInvalid("No request data allowed")
		}
		return nil, nil
	}

	args := make(map[string]string, len(query))
	decoded := make(map[string]interface{}, len(query))
	for key, values := range query {
		if len(values) > 0 {
			args[key] = values[0]
			decoded[key] = values[0]
		}
	}

	if verr := ep.ArgsSchema.Validate(decoded); verr != nil {
		return nil, RequestInvalid(verr.Description)
	}
	return args, nil
}

// writeError converts any error returned by validation or an adapter into
// the {"error": {"code", "description"}} JSON body, defaulting to
// AdapterFailure (500) for anything that isn't already part of the
// taxonomy so a raw stack trace never leaks to the client.
func (d *Dispatcher) writeError(w http.ResponseWriter, err error) {
	bridgeErr, ok := err.(*Error)
	if !ok {
		d.log.Error("unexpected dispatcher error", zap.Error(err))
		bridgeErr = AdapterFailure("Internal server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(bridgeErr.Code)
	body, marshalErr := json.Marshal(struct {
		Error struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}{
		Error: struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		}{Code: bridgeErr.Code, Description: bridgeErr.Description},
	})
	if marshalErr != nil {
		_, _ = w.Write([]byte(`{"error":{"code":500,"description":"Internal server error"}}`))
		return
	}
	_, _ = w.Write(body)
}

// NotFoundHandler serves the dispatcher's 404 contract for unmatched
// (path, method) pairs; register it on the router as NotFound/MethodNotAllowed.
func (d *Dispatcher) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.writeError(w, NotFound(fmt.Sprintf("%s %s not found", r.Method, r.URL.Path)))
	}
}

// Finalize installs the 404/405 handlers. Call once after all endpoints
// have been registered.
func (d *Dispatcher) Finalize() {
	d.router.NotFound(d.NotFoundHandler())
	d.router.MethodNotAllowed(d.NotFoundHandler())
}
