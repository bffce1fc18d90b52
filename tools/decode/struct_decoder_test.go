package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Flag  bool   `json:"flag"`
}

func TestDecodeMapByJSONTag(t *testing.T) {
	p, err := DecodeMap[samplePayload](map[string]any{
		"name":  "general",
		"count": float64(3), // JSON numbers arrive as float64
		"flag":  true,
		"extra": "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "general", p.Name)
	assert.Equal(t, 3, p.Count)
	assert.True(t, p.Flag)
}

func TestDecodeMapWeaklyTyped(t *testing.T) {
	p, err := DecodeMap[samplePayload](map[string]any{"count": "7"})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Count)
}

func TestDecodeMapStrict(t *testing.T) {
	_, err := DecodeMap[samplePayload](map[string]any{"flag": "yes"}, Options{WeaklyTypedInput: false})
	assert.Error(t, err)
}

func TestDecodeMapNil(t *testing.T) {
	_, err := DecodeMap[samplePayload](nil)
	assert.Error(t, err)
}

func TestDecodeMapWrongShape(t *testing.T) {
	_, err := DecodeMap[samplePayload](map[string]any{"name": map[string]any{"nested": 1}})
	assert.Error(t, err)
}
