package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// ChildrenKey holds the child list of aggregate providers.
const ChildrenKey = "children"

// AggregateType is the provider type synthesised when a nested key holds a
// list of blocks instead of a single block.
const AggregateType = "compound"

// SourceSpec is one source-control block as written in the configuration.
//
// A mapping value carrying its own "type" key is a nested block; a list of
// such mappings under "children" becomes Children, and under any other key
// becomes an implicit aggregate. Everything else is kept in Options for the
// provider to decode.
type SourceSpec struct {
	Type     string
	Options  map[string]any
	Nested   map[string]*SourceSpec
	Children []*SourceSpec
	Line     int
}

// UnmarshalYAML decodes a source block, rejecting repeated keys with the
// line numbers of both occurrences.
func (s *SourceSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.ConfigError("source block must be a mapping").
			WithContext("line", node.Line).Build()
	}
	*s = SourceSpec{
		Options: map[string]any{},
		Nested:  map[string]*SourceSpec{},
		Line:    node.Line,
	}

	seen := map[string]*yaml.Node{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		key := k.Value
		if first, dup := seen[key]; dup {
			msg := "duplicate key in source block"
			if isBlock(v) || isBlockList(v) || isBlock(first) {
				msg = fmt.Sprintf("only one nested %s block allowed", key)
			}
			return errors.ConfigError(msg).
				WithContext("key", key).
				WithContext("line", k.Line).
				WithContext("first_line", first.Line).Build()
		}
		seen[key] = v

		switch {
		case key == "type":
			s.Type = strings.ToLower(strings.TrimSpace(v.Value))
		case key == ChildrenKey:
			if v.Kind != yaml.SequenceNode {
				return errors.ConfigError("children must be a list of source blocks").
					WithContext("line", v.Line).Build()
			}
			children, err := decodeBlocks(v)
			if err != nil {
				return err
			}
			s.Children = children
		case isBlock(v):
			var nested SourceSpec
			if err := v.Decode(&nested); err != nil {
				return err
			}
			s.Nested[key] = &nested
		case isBlockList(v):
			children, err := decodeBlocks(v)
			if err != nil {
				return err
			}
			s.Nested[key] = &SourceSpec{
				Type:     AggregateType,
				Options:  map[string]any{},
				Nested:   map[string]*SourceSpec{},
				Children: children,
				Line:     v.Line,
			}
		default:
			var val any
			if err := v.Decode(&val); err != nil {
				return errors.WrapError(err, errors.CategoryConfig, "invalid option value").
					Fatal().WithContext("key", key).WithContext("line", v.Line).Build()
			}
			s.Options[key] = val
		}
	}

	if s.Type == "" {
		return errors.ConfigError("source block has no type").
			WithContext("line", node.Line).Build()
	}
	return nil
}

func decodeBlocks(seq *yaml.Node) ([]*SourceSpec, error) {
	out := make([]*SourceSpec, 0, len(seq.Content))
	for _, item := range seq.Content {
		var child SourceSpec
		if err := item.Decode(&child); err != nil {
			return nil, err
		}
		out = append(out, &child)
	}
	return out, nil
}

func isBlock(n *yaml.Node) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "type" {
			return true
		}
	}
	return false
}

func isBlockList(n *yaml.Node) bool {
	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		return false
	}
	for _, item := range n.Content {
		if !isBlock(item) {
			return false
		}
	}
	return true
}
