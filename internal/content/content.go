// Package content parses and canonicalizes rich-text document snapshots.
//
// A snapshot is an editor JSON tree ({"type":"doc","content":[...]}). Parse
// validates it against the embedded schema and stores the RFC 8785 canonical
// form, so equal trees always produce identical bytes and digests.
package content

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gowebpki/jcs"
	"github.com/kaptinlin/jsonschema"

	"github.com/balkashynov/wroklog/internal/apperr"
)

//go:embed schema.json
var schemaJSON []byte

// MaxBytes bounds the size of a single snapshot.
const MaxBytes = 2 << 20

// EmptyJSON is the snapshot used when a save carries no content.
var EmptyJSON = []byte(`{"content":[],"type":"doc"}`)

var mediaNodeTypes = map[string]bool{
	"image":      true,
	"video":      true,
	"audio":      true,
	"file":       true,
	"attachment": true,
}

var blockNodeTypes = map[string]bool{
	"paragraph":  true,
	"heading":    true,
	"listItem":   true,
	"blockquote": true,
	"codeBlock":  true,
	"taskItem":   true,
}

// Mark is inline formatting on a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Node is one element of the editor tree.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// Doc is a validated, canonical snapshot.
type Doc struct {
	Canonical []byte
	Digest    string
	Root      Node

	media []string
}

// Parser validates snapshots. It is safe for concurrent use.
type Parser struct {
	schema    *jsonschema.Schema
	mediaBase string
}

// NewParser compiles the document schema. Link marks whose href starts with
// mediaBase count as media references.
func NewParser(mediaBase string) (*Parser, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return &Parser{schema: schema, mediaBase: strings.TrimRight(mediaBase, "/")}, nil
}

// Parse validates raw and returns its canonical form. Empty input is the
// empty document.
func (p *Parser) Parse(raw []byte) (*Doc, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		raw = EmptyJSON
	}
	if len(raw) > MaxBytes {
		return nil, apperr.With(apperr.ErrInvalidContent, fmt.Sprintf("content exceeds %d bytes", MaxBytes), nil)
	}

	if !json.Valid(raw) {
		return nil, apperr.With(apperr.ErrInvalidContent, "content is not valid JSON", nil)
	}
	result := p.schema.ValidateJSON(raw)
	if !result.IsValid() {
		return nil, apperr.With(apperr.ErrInvalidContent, "", fmt.Errorf("schema validation failed: %v", result.Errors))
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, apperr.With(apperr.ErrInvalidContent, "", err)
	}
	var root Node
	if err := json.Unmarshal(canonical, &root); err != nil {
		return nil, apperr.With(apperr.ErrInvalidContent, "", err)
	}

	sum := sha256.Sum256(canonical)
	return &Doc{
		Canonical: canonical,
		Digest:    hex.EncodeToString(sum[:]),
		Root:      root,
		media:     collectMedia(root, p.mediaBase),
	}, nil
}

// MediaURLs returns the sorted, de-duplicated media URLs referenced by the
// snapshot. A nil Doc references nothing.
func (d *Doc) MediaURLs() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.media...)
}

// Text flattens the snapshot to plain text, one line per block.
func (d *Doc) Text() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	writeText(&b, d.Root)
	return strings.TrimSpace(b.String())
}

func writeText(b *strings.Builder, n Node) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
		return
	case "hardBreak":
		b.WriteString("\n")
		return
	}
	for _, child := range n.Content {
		writeText(b, child)
	}
	if blockNodeTypes[n.Type] {
		if s := b.String(); s != "" && s[len(s)-1] != '\n' {
			b.WriteString("\n")
		}
	}
}

func collectMedia(root Node, linkBase string) []string {
	seen := make(map[string]struct{})
	var walk func(Node)
	walk = func(n Node) {
		if mediaNodeTypes[n.Type] {
			if src, ok := n.Attrs["src"].(string); ok && isMediaURL(src) {
				seen[src] = struct{}{}
			}
		}
		if linkBase != "" {
			for _, m := range n.Marks {
				if m.Type != "link" {
					continue
				}
				if href, ok := m.Attrs["href"].(string); ok && strings.HasPrefix(href, linkBase+"/") {
					seen[href] = struct{}{}
				}
			}
		}
		for _, child := range n.Content {
			walk(child)
		}
	}
	walk(root)

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Inline data URIs are not stored objects.
func isMediaURL(src string) bool {
	src = strings.TrimSpace(src)
	return src != "" && !strings.HasPrefix(src, "data:") && !strings.HasPrefix(src, "blob:")
}
