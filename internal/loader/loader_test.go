package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memReader(t *testing.T, files map[string]string) *Service {
	t.Helper()
	r, err := NewMem(files)
	require.NoError(t, err)
	return r
}

func TestMemReader(t *testing.T) {
	r := memReader(t, map[string]string{
		"std/io.ws": "pub fn print(s: str) {}",
	})
	data, err := r.Read("std/io.ws")
	require.NoError(t, err)
	assert.Contains(t, string(data), "print")

	_, err = r.Read("std/missing.ws")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, r.Exists("std/missing.ws"))
}

func TestResolveImportForms(t *testing.T) {
	r := memReader(t, map[string]string{
		"std/mod.ws":         "",
		"std/io.ws":          "",
		"std/net/http.ws":    "",
		"std/fmt/mod.ws":     "",
		"proj/util.ws":       "",
		"pkgs/json/mod.ws":   "",
		"pkgs/json/parse.ws": "",
	})
	roots := Roots{Std: "std", Project: "proj", Packages: "pkgs"}

	tests := []struct {
		segments []string
		want     string
	}{
		{[]string{"std"}, "std/mod.ws"},
		{[]string{"std", "io"}, "std/io.ws"},
		{[]string{"std", "net", "http"}, "std/net/http.ws"},
		{[]string{"std", "fmt"}, "std/fmt/mod.ws"}, // directory fallback
		{[]string{"@", "util"}, "proj/util.ws"},
		{[]string{"pkg", "json"}, "pkgs/json/mod.ws"},
		{[]string{"pkg", "json", "parse"}, "pkgs/json/parse.ws"},
	}
	for _, tt := range tests {
		got, err := roots.ResolveImport(tt.segments, r)
		require.NoError(t, err, "%v", tt.segments)
		assert.Equal(t, tt.want, got)
	}

	_, err := roots.ResolveImport([]string{"std", "nothing"}, r)
	assert.Error(t, err)
	_, err = roots.ResolveImport([]string{"bogus", "path"}, r)
	assert.Error(t, err)
}

func TestDiscoverProjectRoot(t *testing.T) {
	r := memReader(t, map[string]string{
		"home/dev/app/wisp.yaml":        "name: app",
		"home/dev/app/src/deep/main.ws": "",
	})
	root, ok := DiscoverProjectRoot(r, "home/dev/app/src/deep", "wisp.yaml")
	require.True(t, ok)
	assert.Equal(t, "home/dev/app", root)

	_, ok = DiscoverProjectRoot(r, "home/other", "wisp.yaml")
	assert.False(t, ok)
}
