package summary_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/clock"
	"github.com/balkashynov/wroklog/internal/content"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/quota"
	"github.com/balkashynov/wroklog/internal/summary"
	"github.com/balkashynov/wroklog/internal/testsupport"
)

type fakeGenerator struct {
	prompts []string
	chunks  []string
	err     error
}

func (f *fakeGenerator) Stream(_ context.Context, prompt string, emit func(string) error) error {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return nil
}

func seed(t *testing.T, store *db.Store, parser *content.Parser, date, text string) {
	t.Helper()
	doc, err := parser.Parse(testsupport.Doc(t, []string{text}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, _, err := store.Documents.Save(context.Background(), db.SaveInput{
		OwnerID: "u1", LogDate: date, Content: doc.Canonical, Digest: doc.Digest,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func newService(t *testing.T, gen summary.Generator, limit int) (*summary.Service, *quota.Gate, *db.Store, *content.Parser) {
	t.Helper()
	store := testsupport.MustOpenDB(t)
	parser, err := content.NewParser("")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	gate := quota.NewGate(store.Usage, clock.NewFake(time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)), limit)
	return summary.NewService(store.Documents, parser, gate, gen), gate, store, parser
}

func TestSummarizeStreamsAndConsumesQuota(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"Shipped ", "the importer."}}
	svc, gate, store, parser := newService(t, gen, 1)
	seed(t, store, parser, "2026-02-16", "wrote importer")
	seed(t, store, parser, "2026-02-17", "fixed tests")

	var out strings.Builder
	err := svc.Summarize(context.Background(), "u1", summary.Request{FromDate: "2026-02-01"}, func(s string) error {
		out.WriteString(s)
		return nil
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out.String() != "Shipped the importer." {
		t.Fatalf("streamed %q", out.String())
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "--- 2026-02-16: Untitled ---\nwrote importer") ||
		strings.Index(prompt, "2026-02-16") > strings.Index(prompt, "2026-02-17") {
		t.Fatalf("unexpected prompt:\n%s", prompt)
	}

	err = svc.Summarize(context.Background(), "u1", summary.Request{}, func(string) error { return nil })
	if !errors.Is(err, apperr.ErrQuotaExhausted) {
		t.Fatalf("second summary: got %v, want quota exhausted", err)
	}
	if d, _ := gate.Remaining(context.Background(), "u1", gate.CurrentMonth()); d.Used != 1 {
		t.Fatalf("used = %d", d.Used)
	}
}

func TestSummarizeWithoutDocumentsIsFree(t *testing.T) {
	svc, gate, _, _ := newService(t, &fakeGenerator{}, 3)
	var got string
	err := svc.Summarize(context.Background(), "u1", summary.Request{}, func(s string) error {
		got = s
		return nil
	})
	if err != nil || got != summary.NoDocumentsText {
		t.Fatalf("got %q, %v", got, err)
	}
	if d, _ := gate.Remaining(context.Background(), "u1", gate.CurrentMonth()); d.Used != 0 {
		t.Fatalf("used = %d, want 0", d.Used)
	}
}

func TestFailedGenerationRefundsQuota(t *testing.T) {
	svc, gate, store, parser := newService(t, &fakeGenerator{err: errors.New("upstream 500")}, 3)
	seed(t, store, parser, "2026-02-16", "notes")

	if err := svc.Summarize(context.Background(), "u1", summary.Request{}, func(string) error { return nil }); err == nil {
		t.Fatal("expected generator error")
	}
	if d, _ := gate.Remaining(context.Background(), "u1", gate.CurrentMonth()); d.Used != 0 {
		t.Fatalf("used = %d, want refund", d.Used)
	}
}

func TestChatGeneratorParsesStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["stream"] != true {
			t.Errorf("bad request body: %v %v", body, err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hello", ", ", "world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	gen := summary.NewChatGenerator(summary.ChatConfig{APIKey: "secret", BaseURL: srv.URL, Model: "test"})
	var out strings.Builder
	if err := gen.Stream(context.Background(), "hi", func(s string) error {
		out.WriteString(s)
		return nil
	}); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if out.String() != "Hello, world" {
		t.Fatalf("got %q", out.String())
	}

	if summary.NewChatGenerator(summary.ChatConfig{}) != nil {
		t.Fatal("generator without api key should be nil")
	}
}

func TestChatGeneratorReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	gen := summary.NewChatGenerator(summary.ChatConfig{APIKey: "x", BaseURL: srv.URL})
	err := gen.Stream(context.Background(), "hi", func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "http 401") {
		t.Fatalf("got %v", err)
	}
}
