package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsObject(t *testing.T) {
	s, err := Compile([]byte(`{"type": "object"}`))
	require.NoError(t, err)

	assert.Nil(t, s.Validate(map[string]interface{}{"a": 2.0}))
}

func TestValidateRejectsNonObject(t *testing.T) {
	s, err := Compile([]byte(`{"type": "object"}`))
	require.NoError(t, err)

	verr := s.Validate("string")
	require.NotNil(t, verr)
	assert.Contains(t, verr.Description, "'string' is not of type 'object'")
}

func TestValidateArgsSchemaRequiresOffsetAndLimit(t *testing.T) {
	s, err := Compile([]byte(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["offset", "limit"],
		"properties": {
			"offset": {"type": "string", "pattern": "^[0-9]+$"},
			"limit":  {"type": "string", "pattern": "^[0-9]+$"}
		}
	}`))
	require.NoError(t, err)

	assert.Nil(t, s.Validate(map[string]interface{}{"offset": "0", "limit": "10"}))
	assert.NotNil(t, s.Validate(map[string]interface{}{"offset": "0"}))
	assert.NotNil(t, s.Validate(map[string]interface{}{"offset": "abc", "limit": "10"}))
}

func TestValidateIsDeterministic(t *testing.T) {
	s, err := Compile([]byte(`{"type": "object"}`))
	require.NoError(t, err)

	first := s.Validate("not an object")
	second := s.Validate("not an object")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Description, second.Description)
}
