// Package media tracks objects embedded in document snapshots and deletes
// the ones a new snapshot no longer references.
package media

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/balkashynov/wroklog/internal/content"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/metrics"
)

const deleteTimeout = 30 * time.Second

// ErrForeignURL is returned by an ObjectStore for URLs it does not manage.
var ErrForeignURL = errors.New("url is not managed by this store")

// ObjectStore removes stored objects by public URL.
type ObjectStore interface {
	Delete(ctx context.Context, url string) error
}

// Reconcile returns the sorted media URLs referenced by prev but not by
// next. URLs that only appear in next are never returned.
func Reconcile(prev, next *content.Doc) []string {
	return Difference(prev.MediaURLs(), next.MediaURLs())
}

// Difference returns the sorted, de-duplicated elements of prev absent from next.
func Difference(prev, next []string) []string {
	keep := make(map[string]struct{}, len(next))
	for _, u := range next {
		keep[u] = struct{}{}
	}
	seen := make(map[string]struct{}, len(prev))
	var orphans []string
	for _, u := range prev {
		if _, ok := keep[u]; ok {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		orphans = append(orphans, u)
	}
	sort.Strings(orphans)
	return orphans
}

// Deleter removes orphaned media in the background. Failures are logged and
// never retried.
type Deleter struct {
	store ObjectStore
	wg    sync.WaitGroup
}

// NewDeleter returns a Deleter backed by store.
func NewDeleter(store ObjectStore) *Deleter {
	return &Deleter{store: store}
}

// Orphaned schedules deletion of urls and returns immediately.
func (d *Deleter) Orphaned(ctx context.Context, urls []string) {
	if d == nil || d.store == nil || len(urls) == 0 {
		return
	}
	urls = append([]string(nil), urls...)
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(base, deleteTimeout)
		defer cancel()
		for _, u := range urls {
			err := d.store.Delete(ctx, u)
			switch {
			case err == nil:
				metrics.MediaDeletes.WithLabelValues("deleted").Inc()
				logger.Debug("orphaned media deleted", "url", u)
			case errors.Is(err, ErrForeignURL):
				metrics.MediaDeletes.WithLabelValues("skipped").Inc()
				logger.Debug("orphaned media not managed locally", "url", u)
			default:
				metrics.MediaDeletes.WithLabelValues("failed").Inc()
				logger.Warn("failed to delete orphaned media", "url", u, "error", err)
			}
		}
	}()
}

// Wait blocks until queued deletions finish.
func (d *Deleter) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}
