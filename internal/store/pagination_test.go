package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSnapshotJSONShape locks down the wire shape C8 replies with, since the
// field names are a contract with the REST client, not just a Go struct.
func TestSnapshotJSONShape(t *testing.T) {
	snap := Snapshot{
		PaginationID: 42,
		Offset:       10,
		Limit:        5,
		Total:        100,
		Messages:     []json.RawMessage{json.RawMessage(`{"a":1}`)},
	}

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"paginationId": 42,
		"offset": 10,
		"limit": 5,
		"total": 100,
		"messages": [{"a":1}]
	}`, string(raw))
}

// TestSnapshotJSONShapeWithEmptyMessages confirms an empty result set
// marshals as [] rather than null, since original_source/fpesa clients treat
// those differently.
func TestSnapshotJSONShapeWithEmptyMessages(t *testing.T) {
	snap := Snapshot{Messages: []json.RawMessage{}}

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.JSONEq(t, `[]`, string(decoded["messages"]))
}
