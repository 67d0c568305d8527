package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/schema"
)

// stubAdapter records the (data, args) it was invoked with and returns a
// fixed result or error.
type stubAdapter struct {
	result json.RawMessage
	err    error

	gotData json.RawMessage
	gotArgs map[string]string
}

func (s *stubAdapter) Adapt(ctx context.Context, data json.RawMessage, args map[string]string) (json.RawMessage, error) {
	s.gotData = data
	s.gotArgs = args
	return s.result, s.err
}

func newTestDispatcher(t *testing.T, ep *Endpoint, adapter Adapter) *Dispatcher {
	t.Helper()
	ep.Bind(adapter)
	d := NewDispatcher(zap.NewNop())
	d.RegisterEndpoint(ep)
	d.Finalize()
	return d
}

func TestDispatcherRejectsBodyWhenNoSchema(t *testing.T) {
	ep := &Endpoint{Path: "/messages/", Method: "POST"}
	d := newTestDispatcher(t, ep, &stubAdapter{result: json.RawMessage(`{}`)})

	req := httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader(`{"a":1}`))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "No request data allowed")
}

func TestDispatcherRejectsUnparsableBody(t *testing.T) {
	dataSchema, err := schema.Compile([]byte(`{"type": "object"}`))
	require.NoError(t, err)

	ep := &Endpoint{Path: "/messages/", Method: "POST", DataSchema: dataSchema}
	d := newTestDispatcher(t, ep, &stubAdapter{result: json.RawMessage(`{}`)})

	req := httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Can not parse request body as JSON")
}

func TestDispatcherRejectsSchemaViolation(t *testing.T) {
	dataSchema, err := schema.Compile([]byte(`{"type": "object"}`))
	require.NoError(t, err)

	ep := &Endpoint{Path: "/messages/", Method: "POST", DataSchema: dataSchema}
	d := newTestDispatcher(t, ep, &stubAdapter{result: json.RawMessage(`{}`)})

	req := httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader(`"a string"`))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "'a string' is not of type 'object'")
}

func TestDispatcherInvokesAdapterAndReturns200(t *testing.T) {
	dataSchema, err := schema.Compile([]byte(`{"type": "object"}`))
	require.NoError(t, err)

	stub := &stubAdapter{result: json.RawMessage(`{}`)}
	ep := &Endpoint{Path: "/messages/", Method: "POST", DataSchema: dataSchema}
	d := newTestDispatcher(t, ep, stub)

	req := httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader(`{"a":2}`))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
	assert.JSONEq(t, `{"a":2}`, string(stub.gotData))
}

func TestDispatcherReturns404ForUnknownRoute(t *testing.T) {
	ep := &Endpoint{Path: "/messages/", Method: "POST"}
	d := newTestDispatcher(t, ep, &stubAdapter{result: json.RawMessage(`{}`)})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 404, body.Error.Code)
}

func TestDispatcherValidatesArgsSchema(t *testing.T) {
	argsSchema, err := schema.Compile([]byte(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["offset", "limit"],
		"properties": {
			"offset": {"type": "string", "pattern": "^[0-9]+$"},
			"limit":  {"type": "string", "pattern": "^[0-9]+$"}
		}
	}`))
	require.NoError(t, err)

	stub := &stubAdapter{result: json.RawMessage(`{"total":0}`)}
	ep := &Endpoint{Path: "/messages/", Method: "GET", ArgsSchema: argsSchema}
	d := newTestDispatcher(t, ep, stub)

	missing := httptest.NewRequest(http.MethodGet, "/messages/?offset=0", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, missing)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	ok := httptest.NewRequest(http.MethodGet, "/messages/?offset=0&limit=10", nil)
	rec = httptest.NewRecorder()
	d.ServeHTTP(rec, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", stub.gotArgs["offset"])
	assert.Equal(t, "10", stub.gotArgs["limit"])
}

func TestAdapterErrorSurfacesItsOwnCode(t *testing.T) {
	ep := &Endpoint{Path: "/messages/", Method: "POST"}
	d := newTestDispatcher(t, ep, &stubAdapter{err: AdapterFailure("broker unreachable")})

	req := httptest.NewRequest(http.MethodPost, "/messages/", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "broker unreachable")
}
