package resolve

import "github.com/wisplang/wisp/internal/types"

// Namespace is a named bundle of public items plus nested child
// namespaces, reached through dotted paths like `io.print`.
type Namespace struct {
	Name     string
	Items    map[string]types.DefId
	Children map[string]*Namespace
}

// NewNamespace creates an empty namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{
		Name:     name,
		Items:    make(map[string]types.DefId),
		Children: make(map[string]*Namespace),
	}
}

// Item looks up a public item.
func (n *Namespace) Item(name string) (types.DefId, bool) {
	id, ok := n.Items[name]
	return id, ok
}

// Child looks up a nested namespace.
func (n *Namespace) Child(name string) (*Namespace, bool) {
	c, ok := n.Children[name]
	return c, ok
}
