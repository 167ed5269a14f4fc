// Package yamlsrc turns YAML entity definitions into JSON text that keeps
// the key order of the source document.
package yamlsrc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyDocument     = errors.New("empty yaml document")
	ErrExcessiveAliasing = errors.New("yaml document contains excessive aliasing")
)

// Alias expansion may visit at most aliasFactor nodes per source node, plus
// aliasSlack for small documents.
const (
	aliasFactor = 10
	aliasSlack  = 1000
)

// DuplicateKeyError reports a key repeated inside one mapping.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	Line      int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate yaml key %q at line %d (first at line %d)", e.Key, e.Line, e.FirstLine)
}

// ToJSON converts the first document of data. Mapping order is preserved and
// merge keys (<<) are resolved, with explicit keys taking precedence.
func ToJSON(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return nil, ErrEmptyDocument
	}

	w := &writer{budget: aliasFactor*countNodes(&root) + aliasSlack}
	if err := w.node(&root); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// countNodes counts the nodes of the tree without following aliases.
func countNodes(n *yaml.Node) int {
	total := 1
	for _, c := range n.Content {
		total += countNodes(c)
	}
	return total
}

type writer struct {
	buf    bytes.Buffer
	budget int
}

func (w *writer) visit() error {
	w.budget--
	if w.budget < 0 {
		return ErrExcessiveAliasing
	}
	return nil
}

func (w *writer) node(n *yaml.Node) error {
	if err := w.visit(); err != nil {
		return err
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			w.buf.WriteString("null")
			return nil
		}
		return w.node(n.Content[0])
	case yaml.AliasNode:
		return w.node(n.Alias)
	case yaml.MappingNode:
		entries, err := w.entries(n)
		if err != nil {
			return err
		}
		w.buf.WriteByte('{')
		for i, e := range entries {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			key, err := json.Marshal(e.key)
			if err != nil {
				return err
			}
			w.buf.Write(key)
			w.buf.WriteByte(':')
			if err := w.node(e.value); err != nil {
				return err
			}
		}
		w.buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		w.buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.node(c); err != nil {
				return err
			}
		}
		w.buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		w.buf.Write(out)
		return nil
	default:
		return fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}

type entry struct {
	key    string
	line   int
	value  *yaml.Node
	merged bool
}

// entries lists the pairs of a mapping in output order. Merged pairs take
// the position of their merge key; an explicit key replaces a merged one in
// place, and earlier merge sources win over later ones.
func (w *writer) entries(n *yaml.Node) ([]entry, error) {
	var out []entry
	index := make(map[string]int, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if isMerge(k) {
			merged, err := w.mergeSources(v)
			if err != nil {
				return nil, err
			}
			for _, e := range merged {
				if _, seen := index[e.key]; seen {
					continue
				}
				index[e.key] = len(out)
				e.merged = true
				out = append(out, e)
			}
			continue
		}

		if at, seen := index[k.Value]; seen {
			if !out[at].merged {
				return nil, &DuplicateKeyError{Key: k.Value, FirstLine: out[at].line, Line: k.Line}
			}
			out[at] = entry{key: k.Value, line: k.Line, value: v}
			continue
		}
		index[k.Value] = len(out)
		out = append(out, entry{key: k.Value, line: k.Line, value: v})
	}
	return out, nil
}

func (w *writer) mergeSources(v *yaml.Node) ([]entry, error) {
	src := resolve(v)
	switch src.Kind {
	case yaml.MappingNode:
		if err := w.visit(); err != nil {
			return nil, err
		}
		return w.entries(src)
	case yaml.SequenceNode:
		var out []entry
		seen := make(map[string]bool)
		for _, item := range src.Content {
			m := resolve(item)
			if m.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merge sequence items must be mappings", item.Line)
			}
			if err := w.visit(); err != nil {
				return nil, err
			}
			es, err := w.entries(m)
			if err != nil {
				return nil, err
			}
			for _, e := range es {
				if seen[e.key] {
					continue
				}
				seen[e.key] = true
				out = append(out, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: merge value must be a mapping or a sequence of mappings", v.Line)
	}
}

func isMerge(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge"
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
