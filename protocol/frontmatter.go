package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

const fence = "---\n"

var errUnclosedFrontmatter = errors.New("malformed frontmatter: missing closing ---")

// appendFrontmatter writes meta as a fenced YAML block. Keys are written in
// sorted order.
func appendFrontmatter(buf *bytes.Buffer, meta map[string]string) error {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: meta[k]},
		)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding frontmatter: %w", err)
	}
	buf.WriteString(fence)
	buf.Write(out)
	buf.WriteString(fence)
	return nil
}

// decodeFrontmatter parses the YAML between the fences. Values are kept as
// strings so YAML never reinterprets numbers or timestamps.
func decodeFrontmatter(data []byte) (map[string]string, error) {
	meta := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return meta, nil
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}
	return meta, nil
}

// splitFrontmatter separates a leading fenced block from the rest of
// content. ok is false when content does not start with a fence.
func splitFrontmatter(content []byte) (fm, rest []byte, ok bool, err error) {
	after, found := bytes.CutPrefix(content, []byte(fence))
	if !found {
		return nil, content, false, nil
	}
	// An empty block closes immediately.
	if rest, found := bytes.CutPrefix(after, []byte(fence)); found {
		return nil, rest, true, nil
	}
	fm, rest, found = bytes.Cut(after, []byte("\n"+fence))
	if !found {
		return nil, nil, true, errUnclosedFrontmatter
	}
	return fm, rest, true, nil
}
