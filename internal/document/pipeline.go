// Package document implements debounced autosave and versioning of daily
// work log documents.
//
// Saves are keyed per document ("doc/<id>") or, before a document exists,
// per owner and day ("new/<owner>/<date>"). Each key has at most one save in
// flight. Requests that arrive meanwhile collapse into a single follow-up
// save carrying the newest content, so version numbers advance by exactly
// one per write.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/clock"
	"github.com/balkashynov/wroklog/internal/content"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/media"
	"github.com/balkashynov/wroklog/internal/metrics"
	"github.com/balkashynov/wroklog/internal/models"
)

const (
	// DefaultDebounce is the quiescence window before an autosave runs.
	DefaultDebounce = 2 * time.Second

	maxTitleLength = 500
	flushTimeout   = 30 * time.Second
)

// Save triggers.
const (
	TriggerAutosave = "autosave"
	TriggerPublish  = "publish"
	TriggerRestore  = "restore"
)

// SaveRequest is one full content snapshot for a document. An empty
// DocumentID targets the owner's entry for LogDate, which defaults to the
// current UTC day.
type SaveRequest struct {
	OwnerID    string          `json:"-"`
	DocumentID string          `json:"document_id,omitempty"`
	LogDate    string          `json:"log_date,omitempty"`
	SessionID  *string         `json:"session_id,omitempty"`
	Title      *string         `json:"title,omitempty"`
	Content    json.RawMessage `json:"content"`
}

// Result reports the outcome of one save.
type Result struct {
	Key      string
	Trigger  string
	Document *models.Document
	Version  *models.DocumentVersion
	Orphans  []string
	// Skipped is set when an autosave matched the stored content.
	Skipped bool
	Err     error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDebounce sets the autosave quiescence window.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.debounce = d
		}
	}
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithDeleter enables deletion of media dropped from a document.
func WithDeleter(d *media.Deleter) Option {
	return func(p *Pipeline) { p.deleter = d }
}

type pendingEdit struct {
	req   SaveRequest
	timer clock.Timer
}

// alias records the document a new-entry key created. A draft was created by
// an autosave and may still be completed by a publish without a document id.
type alias struct {
	id    string
	draft bool
}

type job struct {
	req     SaveRequest
	trigger string
}

type flight struct {
	mu      sync.Mutex
	running bool
	seq     uint64
	next    *job
	lastSeq uint64
	last    Result
	done    chan struct{}
}

// Pipeline coordinates debounced and immediate document saves.
type Pipeline struct {
	store    *db.Store
	parser   *content.Parser
	deleter  *media.Deleter
	clock    clock.Clock
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEdit
	flights map[string]*flight
	aliases map[string]alias // new-entry key -> created document
	hooks   []func(Result)
	closed  bool
}

// NewPipeline builds a Pipeline over store.
func NewPipeline(store *db.Store, parser *content.Parser, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		parser:   parser,
		clock:    clock.Real{},
		debounce: DefaultDebounce,
		pending:  make(map[string]*pendingEdit),
		flights:  make(map[string]*flight),
		aliases:  make(map[string]alias),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnSaved registers fn to receive the result of every save, including
// debounced ones that have no caller waiting.
func (p *Pipeline) OnSaved(fn func(Result)) {
	p.mu.Lock()
	p.hooks = append(p.hooks, fn)
	p.mu.Unlock()
}

// Edit records req as the newest content for its document and restarts the
// debounce timer. It returns the pipeline key the edit was queued under.
func (p *Pipeline) Edit(ctx context.Context, req SaveRequest) (string, error) {
	if err := p.normalize(&req); err != nil {
		return "", err
	}
	if _, err := p.parser.Parse(req.Content); err != nil {
		return "", err
	}
	key := keyFor(req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", errors.New("autosave pipeline is closed")
	}
	if prev := p.pending[key]; prev != nil && prev.timer != nil {
		prev.timer.Stop()
	}
	edit := &pendingEdit{req: req}
	p.pending[key] = edit
	edit.timer = p.clock.AfterFunc(p.debounce, func() { p.flush(key, edit) })
	return key, nil
}

// flush runs the debounced save for key if edit is still the pending one.
func (p *Pipeline) flush(key string, edit *pendingEdit) {
	p.mu.Lock()
	if p.pending[key] != edit {
		p.mu.Unlock()
		return
	}
	delete(p.pending, key)
	req := edit.req
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	p.submit(ctx, key, job{req: req, trigger: TriggerAutosave})
}

// Publish cancels any pending autosave for the document and saves req now.
func (p *Pipeline) Publish(ctx context.Context, req SaveRequest) (*models.Document, error) {
	res, err := p.publish(ctx, req, TriggerPublish)
	if err != nil {
		return nil, err
	}
	return res.Document, nil
}

// PublishResult is Publish returning the full save result.
func (p *Pipeline) PublishResult(ctx context.Context, req SaveRequest) (Result, error) {
	return p.publish(ctx, req, TriggerPublish)
}

func (p *Pipeline) publish(ctx context.Context, req SaveRequest, trigger string) (Result, error) {
	if err := p.normalize(&req); err != nil {
		return Result{}, err
	}
	if _, err := p.parser.Parse(req.Content); err != nil {
		return Result{}, err
	}
	key := keyFor(req)
	edit := p.takePending(key)
	res := p.submit(ctx, key, job{req: req, trigger: trigger})
	if res.Err != nil && edit != nil {
		p.rearm(key, edit)
	}
	return res, res.Err
}

// takePending removes the pending edit for key and stops its timer.
func (p *Pipeline) takePending(key string) *pendingEdit {
	p.mu.Lock()
	edit := p.pending[key]
	delete(p.pending, key)
	p.mu.Unlock()
	if edit != nil && edit.timer != nil {
		edit.timer.Stop()
	}
	return edit
}

// rearm puts back an edit displaced by a failed publish unless a newer edit
// has been queued since.
func (p *Pipeline) rearm(key string, edit *pendingEdit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.pending[key] != nil {
		return
	}
	p.pending[key] = edit
	edit.timer = p.clock.AfterFunc(p.debounce, func() { p.flush(key, edit) })
	logger.Debug("pending edit restored after failed publish", "key", key)
}

// Close saves every pending edit immediately and stops accepting new ones.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	edits := p.pending
	p.pending = make(map[string]*pendingEdit)
	p.mu.Unlock()

	var errs []error
	for key, edit := range edits {
		if edit.timer != nil {
			edit.timer.Stop()
		}
		if res := p.submit(ctx, key, job{req: edit.req, trigger: TriggerAutosave}); res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, res.Err))
		}
	}
	return errors.Join(errs...)
}

// DocumentFor returns the id of the document created under a new-entry key,
// or "" while none exists.
func (p *Pipeline) DocumentFor(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aliases[key].id
}

// Pending reports how many debounced edits are waiting.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// submit runs j under the key's single flight. A caller that arrives while
// a save is running waits for the next flight, which carries the newest
// queued content.
func (p *Pipeline) submit(ctx context.Context, key string, j job) Result {
	p.mu.Lock()
	f := p.flights[key]
	if f == nil {
		f = &flight{done: make(chan struct{})}
		p.flights[key] = f
	}
	f.mu.Lock()
	p.mu.Unlock()

	f.seq++
	mine := f.seq
	f.next = &j
	if !f.running {
		f.running = true
		f.mu.Unlock()
		return p.lead(ctx, key, f)
	}

	for f.lastSeq < mine {
		done := f.done
		f.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return Result{Key: key, Trigger: j.trigger, Err: ctx.Err()}
		}
		f.mu.Lock()
	}
	res := f.last
	f.mu.Unlock()
	return res
}

// lead drains the flight. The first result belongs to the caller; later
// flights run detached from the caller's cancellation.
func (p *Pipeline) lead(ctx context.Context, key string, f *flight) Result {
	var first *Result
	for {
		f.mu.Lock()
		j, seq := f.next, f.seq
		f.next = nil
		f.mu.Unlock()

		res := p.save(ctx, key, j.req, j.trigger)
		p.notify(res)
		if first == nil {
			first = &res
			ctx = context.WithoutCancel(ctx)
		}

		p.mu.Lock()
		f.mu.Lock()
		f.last, f.lastSeq = res, seq
		close(f.done)
		f.done = make(chan struct{})
		if f.next == nil {
			f.running = false
			if p.flights[key] == f {
				delete(p.flights, key)
			}
			f.mu.Unlock()
			p.mu.Unlock()
			return *first
		}
		f.mu.Unlock()
		p.mu.Unlock()
	}
}

func (p *Pipeline) notify(res Result) {
	status := "ok"
	switch {
	case res.Err != nil:
		status = "error"
		logger.Warn("document save failed", "key", res.Key, "trigger", res.Trigger, "code", apperr.CodeOf(res.Err), "error", res.Err)
	case res.Skipped:
		status = "unchanged"
		logger.Debug("autosave skipped, content unchanged", "key", res.Key)
	default:
		logger.Info("document saved", "key", res.Key, "trigger", res.Trigger,
			"document", res.Document.ID, "version", res.Version.VersionNumber, "orphans", len(res.Orphans))
	}
	metrics.DocumentSaves.WithLabelValues(res.Trigger, status).Inc()

	p.mu.Lock()
	hooks := append([]func(Result){}, p.hooks...)
	p.mu.Unlock()
	for _, fn := range hooks {
		fn(res)
	}
}

// save writes one snapshot, retrying once on transient or optimistic
// concurrency failures.
func (p *Pipeline) save(ctx context.Context, key string, req SaveRequest, trigger string) Result {
	start := time.Now()
	defer metrics.ObserveSince(metrics.DocumentSaveDuration, start)

	var res Result
	for attempt := 0; attempt < 2; attempt++ {
		res = p.saveOnce(ctx, key, req, trigger)
		if res.Err == nil || !(apperr.IsTransient(res.Err) || errors.Is(res.Err, apperr.ErrConcurrentUpdate)) {
			break
		}
	}
	return res
}

func (p *Pipeline) saveOnce(ctx context.Context, key string, req SaveRequest, trigger string) Result {
	res := Result{Key: key, Trigger: trigger}
	next, err := p.parser.Parse(req.Content)
	if err != nil {
		res.Err = err
		return res
	}

	documentID := req.DocumentID
	completesDraft := false
	if documentID == "" {
		p.mu.Lock()
		if a, ok := p.aliases[key]; ok && (trigger == TriggerAutosave || a.draft) {
			documentID = a.id
			completesDraft = a.draft && trigger != TriggerAutosave
		}
		p.mu.Unlock()
	}

	var prev *content.Doc
	if documentID != "" {
		doc, current, err := p.current(ctx, req.OwnerID, documentID)
		if err != nil {
			res.Err = err
			return res
		}
		if trigger == TriggerAutosave && current.ContentDigest == next.Digest && titleUnchanged(doc, req.Title) {
			res.Document, res.Version, res.Skipped = doc, current, true
			return res
		}
		if prev, err = p.parser.Parse(current.Content); err != nil {
			logger.Warn("stored version failed to parse; skipping media reconciliation",
				"document", documentID, "version", current.VersionNumber, "error", err)
			prev = nil
		}
	}

	doc, version, err := p.store.Documents.Save(ctx, db.SaveInput{
		OwnerID:    req.OwnerID,
		DocumentID: documentID,
		SessionID:  req.SessionID,
		LogDate:    req.LogDate,
		Title:      req.Title,
		Content:    next.Canonical,
		Digest:     next.Digest,
	})
	if err != nil {
		res.Err = err
		return res
	}
	switch {
	case documentID == "":
		p.mu.Lock()
		p.aliases[key] = alias{id: doc.ID, draft: trigger == TriggerAutosave}
		p.mu.Unlock()
	case completesDraft:
		p.mu.Lock()
		p.aliases[key] = alias{id: doc.ID}
		p.mu.Unlock()
	}

	res.Document, res.Version = doc, version
	res.Orphans = media.Reconcile(prev, next)
	p.deleter.Orphaned(ctx, res.Orphans)
	return res
}

func (p *Pipeline) current(ctx context.Context, ownerID, documentID string) (*models.Document, *models.DocumentVersion, error) {
	doc, err := p.store.Documents.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, nil, err
	}
	version, err := p.store.Documents.Version(ctx, doc.ID, doc.CurrentVersion)
	if err != nil {
		return nil, nil, err
	}
	return doc, version, nil
}

func titleUnchanged(doc *models.Document, title *string) bool {
	return title == nil || *title == doc.Title
}

func (p *Pipeline) normalize(req *SaveRequest) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return apperr.With(apperr.ErrInvalidInput, "owner id is required", nil)
	}
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.LogDate = strings.TrimSpace(req.LogDate)
	if req.DocumentID == "" {
		if req.LogDate == "" {
			req.LogDate = models.UTCDay(p.clock.Now())
		}
		if _, err := time.Parse(models.DayLayout, req.LogDate); err != nil {
			return apperr.With(apperr.ErrInvalidInput, fmt.Sprintf("invalid log_date %q, want YYYY-MM-DD", req.LogDate), err)
		}
	}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if len(t) > maxTitleLength {
			return apperr.With(apperr.ErrInvalidInput, fmt.Sprintf("title exceeds %d characters", maxTitleLength), nil)
		}
		req.Title = &t
	}
	return nil
}

func keyFor(req SaveRequest) string {
	if req.DocumentID != "" {
		return "doc/" + req.DocumentID
	}
	return "new/" + req.OwnerID + "/" + req.LogDate
}
