package jsonutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]int `json:"tags,omitempty"`
}

func TestMarshal_SortedKeys(t *testing.T) {
	v := sample{Name: "x", Count: 2, Tags: map[string]int{"zeta": 1, "alpha": 2, "mid": 3}}
	for i := 0; i < 10; i++ {
		data, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"x","count":2,"tags":{"alpha":2,"mid":3,"zeta":1}}`, string(data))
	}
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(sample{Name: "x"}, "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"name\": \"x\"")
}

func TestUnmarshal(t *testing.T) {
	var v sample
	require.NoError(t, Unmarshal([]byte(`{"name":"a","count":7}`), &v))
	assert.Equal(t, "a", v.Name)
	assert.Equal(t, 7, v.Count)

	assert.Error(t, Unmarshal([]byte(`{"name":`), &v))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(`{"a":1}`)))
	assert.True(t, Valid([]byte(`[]`)))
	assert.False(t, Valid([]byte(`{a:1}`)))
	assert.False(t, Valid(nil))
}

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewStreamEncoder(&buf)
	require.NoError(t, enc.Encode(sample{Name: "one", Count: 1}))
	require.NoError(t, enc.Encode(sample{Name: "two", Count: 2}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"name":"one","count":1}`, lines[0])
	assert.True(t, Valid([]byte(lines[1])))

	buf.Reset()
	enc.SetIndent("\t")
	require.NoError(t, enc.Encode(sample{Name: "x"}))
	assert.Contains(t, buf.String(), "\n\t\"name\"")
}
