package codegen

import (
	"fmt"
	"strings"
)

// Output holds the generated sources for one input.
type Output struct {
	Luau       []byte
	TypeScript []byte
}

// Generate renders bindings for one input's synced identifiers.
func Generate(assets map[string]string, opts Options) (Output, error) {
	var out Output

	switch opts.Style {
	case StyleFlat:
		bindings, err := FlatBindings(assets, opts.StripExtensions)
		if err != nil {
			return Output{}, err
		}
		out.Luau = emitLuauFlat(bindings)
		if opts.TypeScript {
			out.TypeScript = emitTypeScriptFlat(bindings)
		}
	case StyleNested:
		tree, err := BuildTree(assets, opts.StripExtensions)
		if err != nil {
			return Output{}, err
		}
		out.Luau = emitLuauNested(tree)
		if opts.TypeScript {
			out.TypeScript = emitTypeScriptNested(tree)
		}
	default:
		return Output{}, fmt.Errorf("unknown codegen style %d", opts.Style)
	}

	return out, nil
}

func emitLuauFlat(bindings []Binding) []byte {
	var b strings.Builder
	b.WriteString("return {\n")
	for _, binding := range bindings {
		fmt.Fprintf(&b, "\t[%q] = %q,\n", binding.Path, binding.ID)
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

func emitLuauNested(root *Node) []byte {
	var b strings.Builder
	b.WriteString("return {\n")
	writeLuauChildren(&b, root, 1)
	b.WriteString("}\n")
	return []byte(b.String())
}

func writeLuauChildren(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, name := range n.childNames() {
		child := n.Children[name]
		key := name
		if !luauIdent(name) {
			key = fmt.Sprintf("[%q]", name)
		}
		if child.leaf() {
			fmt.Fprintf(b, "%s%s = %q,\n", indent, key, child.ID)
			continue
		}
		fmt.Fprintf(b, "%s%s = {\n", indent, key)
		writeLuauChildren(b, child, depth+1)
		fmt.Fprintf(b, "%s},\n", indent)
	}
}

func emitTypeScriptFlat(bindings []Binding) []byte {
	var b strings.Builder
	b.WriteString("declare const assets: {\n")
	for _, binding := range bindings {
		fmt.Fprintf(&b, "\treadonly %q: string\n", binding.Path)
	}
	b.WriteString("}\nexport = assets\n")
	return []byte(b.String())
}

func emitTypeScriptNested(root *Node) []byte {
	var b strings.Builder
	b.WriteString("declare const assets: {\n")
	writeTypeScriptChildren(&b, root, 1)
	b.WriteString("}\nexport = assets\n")
	return []byte(b.String())
}

func writeTypeScriptChildren(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, name := range n.childNames() {
		child := n.Children[name]
		key := name
		if !tsIdent(name) {
			key = fmt.Sprintf("%q", name)
		}
		if child.leaf() {
			fmt.Fprintf(b, "%sreadonly %s: string\n", indent, key)
			continue
		}
		fmt.Fprintf(b, "%sreadonly %s: {\n", indent, key)
		writeTypeScriptChildren(b, child, depth+1)
		fmt.Fprintf(b, "%s}\n", indent)
	}
}

var luauReserved = map[string]struct{}{
	"and": {}, "break": {}, "do": {}, "else": {}, "elseif": {}, "end": {},
	"false": {}, "for": {}, "function": {}, "goto": {}, "if": {}, "in": {},
	"local": {}, "nil": {}, "not": {}, "or": {}, "repeat": {}, "return": {},
	"then": {}, "true": {}, "until": {}, "while": {},
}

func luauIdent(s string) bool {
	if _, reserved := luauReserved[s]; reserved || s == "" {
		return false
	}
	return ident(s)
}

func tsIdent(s string) bool {
	// Reserved words are legal property names in TypeScript object
	// types, so only the character shape matters.
	return s != "" && ident(s)
}

func ident(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
