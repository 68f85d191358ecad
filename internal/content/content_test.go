package content

import (
	"errors"
	"reflect"
	"testing"

	"github.com/balkashynov/wroklog/internal/apperr"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser("https://cdn.example.com/media/")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

func TestParseCanonicalizesEquivalentInput(t *testing.T) {
	p := newTestParser(t)

	a, err := p.Parse([]byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"text":"hi","type":"text"}]}]}`))
	if err != nil {
		t.Fatalf("Parse a: %v", err)
	}
	b, err := p.Parse([]byte("{\n  \"content\": [{\"content\": [{\"type\": \"text\", \"text\": \"hi\"}], \"type\": \"paragraph\"}],\n  \"type\": \"doc\"\n}"))
	if err != nil {
		t.Fatalf("Parse b: %v", err)
	}
	if string(a.Canonical) != string(b.Canonical) || a.Digest != b.Digest {
		t.Fatalf("canonical forms differ:\n%s\n%s", a.Canonical, b.Canonical)
	}

	again, err := p.Parse(a.Canonical)
	if err != nil {
		t.Fatalf("Parse canonical: %v", err)
	}
	if string(again.Canonical) != string(a.Canonical) {
		t.Fatal("canonicalization must be idempotent")
	}
}

func TestParseRejectsInvalidContent(t *testing.T) {
	p := newTestParser(t)
	tests := map[string]string{
		"not json":          `{"type":`,
		"wrong root":        `{"type":"paragraph"}`,
		"node without type": `{"type":"doc","content":[{"text":"x"}]}`,
		"content not array": `{"type":"doc","content":{}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := p.Parse([]byte(raw)); !errors.Is(err, apperr.ErrInvalidContent) {
				t.Fatalf("Parse(%s) = %v, want ErrInvalidContent", raw, err)
			}
		})
	}
}

func TestParseEmptyIsEmptyDoc(t *testing.T) {
	p := newTestParser(t)
	doc, err := p.Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if string(doc.Canonical) != string(EmptyJSON) {
		t.Fatalf("canonical = %s", doc.Canonical)
	}
}

func TestMediaURLsAndText(t *testing.T) {
	p := newTestParser(t)
	doc, err := p.Parse([]byte(`{"type":"doc","content":[
		{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Monday"}]},
		{"type":"paragraph","content":[
			{"type":"text","text":"see "},
			{"type":"text","text":"plan","marks":[{"type":"link","attrs":{"href":"https://cdn.example.com/media/u1/plan.pdf"}}]},
			{"type":"text","text":" today","marks":[{"type":"link","attrs":{"href":"https://elsewhere.org/x"}}]}
		]},
		{"type":"image","attrs":{"src":"https://cdn.example.com/media/u1/b.png"}},
		{"type":"image","attrs":{"src":"https://cdn.example.com/media/u1/a.png"}},
		{"type":"image","attrs":{"src":"https://cdn.example.com/media/u1/a.png"}},
		{"type":"image","attrs":{"src":"data:image/png;base64,AAAA"}},
		{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"shipped"}]}]}]}
	]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []string{
		"https://cdn.example.com/media/u1/a.png",
		"https://cdn.example.com/media/u1/b.png",
		"https://cdn.example.com/media/u1/plan.pdf",
	}
	if got := doc.MediaURLs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("MediaURLs = %v, want %v", got, want)
	}

	if got := doc.Text(); got != "Monday\nsee plan today\nshipped" {
		t.Fatalf("Text = %q", got)
	}
}
