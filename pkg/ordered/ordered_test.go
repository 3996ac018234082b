package ordered

import (
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSetKeepsPosition(t *testing.T) {
	m := FromPairs("b", "1", "a", "2")
	m = m.Set("b", "3").Set("c", "4")

	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	v, ok := m.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestGetFold(t *testing.T) {
	m := FromPairs("Content-Type", "text/xml")

	_, ok := m.Get("content-type")
	assert.False(t, ok)
	v, ok := m.GetFold("content-type")
	assert.True(t, ok)
	assert.Equal(t, "text/xml", v)
	assert.True(t, m.HasFold("CONTENT-TYPE"))
}

func TestCloneIsIndependent(t *testing.T) {
	m := FromPairs("k", "v")
	c := m.Clone()
	c[0].Value = "changed"
	assert.Equal(t, "v", m[0].Value)
	assert.Nil(t, Map(nil).Clone())
}

func TestYAMLPreservesOrder(t *testing.T) {
	src := `
z: 1
a: two
m: true
empty:
`
	var m Map
	require.NoError(t, yaml.Unmarshal([]byte(src), &m))
	assert.Equal(t, []string{"z", "a", "m", "empty"}, m.Keys())
	assert.Equal(t, "1", m[0].Value)
	assert.Equal(t, "true", m[2].Value)
	assert.Equal(t, "", m[3].Value)

	out, err := yaml.Marshal(m)
	require.NoError(t, err)
	var back Map
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, m, back)
}

func TestYAMLRejectsNested(t *testing.T) {
	var m Map
	err := yaml.Unmarshal([]byte("a:\n  b: c\n"), &m)
	assert.Error(t, err)
}

func TestJSONRoundTripOrder(t *testing.T) {
	m := FromPairs("z", "1", "a", "2")
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"2"}`, string(data))

	var back Map
	require.NoError(t, json.Unmarshal([]byte(`{"y":"1","b":"2"}`), &back))
	assert.Equal(t, []string{"y", "b"}, back.Keys())
}
