package testsupport

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/balkashynov/wroklog/internal/config"
	"github.com/balkashynov/wroklog/internal/db"
)

// MustOpenDB opens a migrated SQLite store in a temp dir and registers cleanup.
func MustOpenDB(t testing.TB) *db.Store {
	t.Helper()

	store, err := db.Open(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "wroklog.db"),
	})
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Doc builds editor JSON with one paragraph per text and one image node per
// media URL.
func Doc(t testing.TB, texts []string, media ...string) []byte {
	t.Helper()

	nodes := make([]map[string]any, 0, len(texts)+len(media))
	for _, text := range texts {
		nodes = append(nodes, map[string]any{
			"type":    "paragraph",
			"content": []map[string]any{{"type": "text", "text": text}},
		})
	}
	for _, src := range media {
		nodes = append(nodes, map[string]any{
			"type":  "image",
			"attrs": map[string]any{"src": src},
		})
	}
	data, err := json.Marshal(map[string]any{"type": "doc", "content": nodes})
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}
	return data
}
