package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"action":"extract","data":"{\"title\":\"T\"}","id":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, Envelope{Action: "extract", Data: `{"title":"T"}`, ID: "abc"}, env)

	var inner struct {
		Title string `json:"title"`
	}
	require.NoError(t, env.DecodeData(&inner))
	assert.Equal(t, "T", inner.Title)
}

func TestDecodeEnvelope_Untagged(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"action":"auto","data":"{}"}`))
	require.NoError(t, err)
	assert.Empty(t, env.ID)
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"data":"x"}`, `[]`} {
		_, err := DecodeEnvelope([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestEnvelope_DecodeDataErrors(t *testing.T) {
	var v map[string]any
	assert.Error(t, Envelope{Action: "links"}.DecodeData(&v))
	assert.Error(t, Envelope{Action: "links", Data: "{"}.DecodeData(&v))
}
