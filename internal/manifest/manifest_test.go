package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/internal/loader"
)

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`
name: demo
version: 0.1.0
dependencies:
  json: "1.2"
`))
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Name)
	assert.Equal(t, "0.1.0", m.Version)
	assert.Equal(t, "1.2", m.Dependencies["json"])
}

func TestParseMissingName(t *testing.T) {
	_, err := Parse([]byte(`version: 1.0`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing project name")
}

func TestFindWalksParents(t *testing.T) {
	reader, err := loader.NewMem(map[string]string{
		"repo/wisp.yaml":       "name: repo",
		"repo/src/lib/util.ws": "",
	})
	require.NoError(t, err)

	m, root, err := Find(reader, "repo/src/lib")
	require.NoError(t, err)
	assert.Equal(t, "repo", m.Name)
	assert.Equal(t, "repo", root)

	_, _, err = Find(reader, "elsewhere")
	assert.Error(t, err)
}
