package media_test

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/balkashynov/wroklog/internal/content"
	"github.com/balkashynov/wroklog/internal/media"
	"github.com/balkashynov/wroklog/internal/testsupport"
)

const base = "https://cdn.example.com/media"

func parse(t *testing.T, p *content.Parser, srcs ...string) *content.Doc {
	t.Helper()
	doc, err := p.Parse(testsupport.Doc(t, []string{"notes"}, srcs...))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestReconcile(t *testing.T) {
	p, err := content.NewParser(base)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	a, b, c := base+"/u1/a.png", base+"/u1/b.png", base+"/u1/c.png"

	tests := []struct {
		name string
		prev []string
		next []string
		want []string
	}{
		{"removed image", []string{a, b}, []string{a}, []string{b}},
		{"superset", []string{a}, []string{a, b, c}, nil},
		{"only new urls", nil, []string{c}, nil},
		{"everything removed", []string{c, a}, nil, []string{a, c}},
		{"replaced", []string{a, b}, []string{b, c}, []string{a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := media.Reconcile(parse(t, p, tt.prev...), parse(t, p, tt.next...))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Reconcile = %v, want %v", got, tt.want)
			}
			for _, u := range got {
				for _, n := range tt.next {
					if u == n {
						t.Fatalf("orphan %s is still referenced by next", u)
					}
				}
			}
		})
	}

	if got := media.Reconcile(nil, parse(t, p, a)); got != nil {
		t.Fatalf("first save has no orphans, got %v", got)
	}
}

func TestLocalStorePutDelete(t *testing.T) {
	store, err := media.NewLocalStore(t.TempDir(), base+"/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	u, err := store.Put(ctx, "u1", "shot.PNG", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(u, base+"/u1/") || !strings.HasSuffix(u, ".png") {
		t.Fatalf("unexpected url %q", u)
	}
	local := store.Dir() + "/u1/" + u[strings.LastIndex(u, "/")+1:]
	if _, err := os.Stat(local); err != nil {
		t.Fatalf("object missing on disk: %v", err)
	}

	if err := store.Delete(ctx, u); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Fatalf("object still present: %v", err)
	}
	if err := store.Delete(ctx, u); err != nil {
		t.Fatalf("second Delete must be a no-op: %v", err)
	}

	if _, err := store.Put(ctx, "u1", "run.sh", strings.NewReader("#!/bin/sh")); err == nil {
		t.Fatal("expected disallowed extension to fail")
	}
	for _, foreign := range []string{"https://other.example.com/a.png", base + "/../etc/passwd", base + "/"} {
		if err := store.Delete(ctx, foreign); !errors.Is(err, media.ErrForeignURL) {
			t.Fatalf("Delete(%q) = %v, want ErrForeignURL", foreign, err)
		}
	}
}

type recordingStore struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]bool
}

func (r *recordingStore) Delete(_ context.Context, u string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[u] {
		return errors.New("provider unavailable")
	}
	r.deleted = append(r.deleted, u)
	return nil
}

func TestDeleterIsBestEffort(t *testing.T) {
	store := &recordingStore{fail: map[string]bool{"b": true}}
	d := media.NewDeleter(store)

	ctx, cancel := context.WithCancel(context.Background())
	d.Orphaned(ctx, []string{"a", "b", "c"})
	cancel() // request scope ending must not abort deletions
	d.Wait()

	if !reflect.DeepEqual(store.deleted, []string{"a", "c"}) {
		t.Fatalf("deleted = %v", store.deleted)
	}
}
