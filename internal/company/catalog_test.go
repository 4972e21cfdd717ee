package company

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Builtin(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 10)

	co, ok := c.Lookup(" aapl ")
	require.True(t, ok)
	assert.Equal(t, "Apple Inc.", co.Name)

	all := c.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Symbol, all[i].Symbol)
	}
}

func TestParse_NormalizesAndDedupes(t *testing.T) {
	c, err := Parse([]byte(`[
		{"symbol":"msft","name":"Microsoft"},
		{"symbol":"MSFT","name":"Duplicate"},
		{"symbol":"  ","name":"Blank"},
		{"symbol":"ibm","name":"IBM"}
	]`))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "IBM", c.All()[0].Symbol)

	co, ok := c.Lookup("MSFT")
	require.True(t, ok)
	assert.Equal(t, "Microsoft", co.Name)

	_, ok = c.Lookup("ZZZZ")
	assert.False(t, ok)
}

func TestLoad_FileAndErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"symbol":"X","name":"Ex"}]`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{not json`))
	assert.Error(t, err)
}

func TestAll_ReturnsCopy(t *testing.T) {
	c, err := Parse([]byte(`[{"symbol":"A","name":"a"}]`))
	require.NoError(t, err)
	all := c.All()
	all[0].Name = "changed"
	co, _ := c.Lookup("A")
	assert.Equal(t, "a", co.Name)
}
