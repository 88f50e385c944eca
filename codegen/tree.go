// Package codegen turns synced identifiers into source bindings so
// game code references assets by path instead of pasted ids.
package codegen

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Style selects the binding layout.
type Style int

const (
	// StyleFlat emits one table keyed by full relative path.
	StyleFlat Style = iota
	// StyleNested emits a table tree mirroring the directory layout.
	StyleNested
)

// ParseStyle maps the configuration value onto a Style.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "", "flat":
		return StyleFlat, nil
	case "nested":
		return StyleNested, nil
	default:
		return 0, fmt.Errorf("unknown codegen style %q (want flat or nested)", s)
	}
}

// Options configures binding generation for one input.
type Options struct {
	Style Style
	// StripExtensions drops file extensions from binding keys.
	StripExtensions bool
	// TypeScript additionally emits a .d.ts declaration next to the
	// Luau module.
	TypeScript bool
}

// Binding is one flat path → identifier pair.
type Binding struct {
	Path string
	ID   string
}

// Node is one level of the binding tree: either a leaf carrying an
// identifier or a directory of children, never both.
type Node struct {
	ID       string
	Children map[string]*Node
}

func (n *Node) leaf() bool { return n.Children == nil }

// childNames returns child keys in sorted order, so emission is
// deterministic regardless of sync order.
func (n *Node) childNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// bindingPath derives the binding key for a source path.
func bindingPath(p string, stripExtensions bool) string {
	if stripExtensions {
		return strings.TrimSuffix(p, path.Ext(p))
	}
	return p
}

// FlatBindings derives sorted flat bindings. Two source paths mapping
// to the same binding key are a configuration error, reported before
// any file is written. Paths are processed in sorted order so the same
// inputs always name the same conflict.
func FlatBindings(assets map[string]string, stripExtensions bool) ([]Binding, error) {
	paths := sortedPaths(assets)

	out := make([]Binding, 0, len(paths))
	claimed := map[string]string{}
	for _, p := range paths {
		key := bindingPath(p, stripExtensions)
		if prev, ok := claimed[key]; ok {
			return nil, fmt.Errorf("binding collision: %q and %q both map to %q", prev, p, key)
		}
		claimed[key] = p
		out = append(out, Binding{Path: key, ID: assets[p]})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// BuildTree arranges identifiers into a nested binding tree. On top of
// exact-key collisions, a key that is both a file and a directory is an
// error: the tree cannot hold a table and a leaf under one name.
func BuildTree(assets map[string]string, stripExtensions bool) (*Node, error) {
	if _, err := FlatBindings(assets, stripExtensions); err != nil {
		return nil, err
	}

	root := &Node{Children: map[string]*Node{}}
	for _, p := range sortedPaths(assets) {
		if err := insert(root, bindingPath(p, stripExtensions), p, assets[p]); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func sortedPaths(assets map[string]string) []string {
	paths := make([]string, 0, len(assets))
	for p := range assets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func insert(root *Node, binding, source, id string) error {
	segments := strings.Split(binding, "/")
	node := root
	for i, seg := range segments {
		last := i == len(segments)-1

		child, ok := node.Children[seg]
		if !ok {
			child = &Node{}
			if !last {
				child.Children = map[string]*Node{}
			}
			node.Children[seg] = child
		}

		if last {
			if ok {
				return fmt.Errorf("binding collision: %q maps to %q, which is also a directory", source, binding)
			}
			child.ID = id
			return nil
		}
		if child.leaf() {
			return fmt.Errorf("binding collision: %q nests under %q, which is also a file", source, strings.Join(segments[:i+1], "/"))
		}
		node = child
	}
	return nil
}
