package envelope

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCorrelationIDIsLowercaseHex128Bit(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{32}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewCorrelationID()
		require.NoError(t, err)
		assert.True(t, hexPattern.MatchString(id), "id %q is not 32 lowercase hex chars", id)
		assert.False(t, seen[id], "correlation id collision: %q", id)
		seen[id] = true
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	original := New(json.RawMessage(`{"a":2}`), map[string]string{"offset": "0"})

	raw, err := original.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(raw)
	require.NoError(t, err)

	assert.JSONEq(t, `{"a":2}`, string(decoded.Data))
	assert.Equal(t, "0", decoded.Args["offset"])
}

func TestReplyMarshalsResultAtTopLevel(t *testing.T) {
	reply := Reply{Result: json.RawMessage(`{"total":3}`)}
	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":3}`, string(raw))
}

func TestReplyMarshalsErrorShape(t *testing.T) {
	reply := Reply{Error: &ReplyError{Code: 500, Description: "Internal server error"}}
	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":500,"description":"Internal server error"}}`, string(raw))
}
