// Package manifest reads the wisp.yaml project marker.
package manifest

import (
	"fmt"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/wisplang/wisp/internal/loader"
)

// Marker is the file whose presence makes a directory a project root.
const Marker = "wisp.yaml"

// Manifest is the parsed project marker.
type Manifest struct {
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version"`
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", Marker, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%s: missing project name", Marker)
	}
	return &m, nil
}

// Find walks parent directories from dir for the project marker and
// returns the parsed manifest plus the root directory.
func Find(reader loader.Reader, dir string) (*Manifest, string, error) {
	root, ok := loader.DiscoverProjectRoot(reader, dir, Marker)
	if !ok {
		return nil, "", fmt.Errorf("no %s found above %s", Marker, dir)
	}
	data, err := reader.Read(path.Join(root, Marker))
	if err != nil {
		return nil, "", err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, "", err
	}
	return m, root, nil
}
