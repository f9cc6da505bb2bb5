package loader

import (
	"fmt"
	"path"
)

// SourceExt is the wisp source file extension.
const SourceExt = ".ws"

// ModFile is the file name a directory import resolves to.
const ModFile = "mod" + SourceExt

// Roots are the three injected import roots.
type Roots struct {
	Std      string // `import std.x`
	Project  string // `import @.x`
	Packages string // `import pkg.name.x`
}

// ResolveImport maps an import path to a canonical file path, probing
// `a/b.ws` then `a/b/mod.ws` under the relevant root.
//
//	std.a.b   -> std/a/b.ws | std/a/b/mod.ws
//	std       -> std/mod.ws
//	@.a.b     -> project/a/b.ws | project/a/b/mod.ws
//	pkg.n.a   -> packages/n/a.ws | packages/n/a/mod.ws
func (r Roots) ResolveImport(segments []string, reader Reader) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("empty import path")
	}
	var root string
	var rest []string
	switch segments[0] {
	case "std":
		root = r.Std
		rest = segments[1:]
	case "@":
		root = r.Project
		rest = segments[1:]
	case "pkg":
		if len(segments) < 2 {
			return "", fmt.Errorf("package import needs a package name")
		}
		root = path.Join(r.Packages, segments[1])
		rest = segments[2:]
	default:
		return "", fmt.Errorf("import path must start with std, @ or pkg, got %q", segments[0])
	}

	if len(rest) == 0 {
		p := path.Join(root, ModFile)
		if reader.Exists(p) {
			return p, nil
		}
		return "", fmt.Errorf("%s: %w", p, ErrNotFound)
	}

	base := path.Join(append([]string{root}, rest...)...)
	if p := base + SourceExt; reader.Exists(p) {
		return p, nil
	}
	if p := path.Join(base, ModFile); reader.Exists(p) {
		return p, nil
	}
	return "", fmt.Errorf("%s%s: %w", base, SourceExt, ErrNotFound)
}

// DiscoverProjectRoot walks parent directories from dir looking for
// the project marker file.
func DiscoverProjectRoot(reader Reader, dir string, marker string) (string, bool) {
	d := path.Clean(dir)
	for {
		if reader.Exists(path.Join(d, marker)) {
			return d, true
		}
		parent := path.Dir(d)
		if parent == d {
			return "", false
		}
		d = parent
	}
}
