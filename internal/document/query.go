package document

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/models"
)

const (
	maxVersions    = 50
	defaultPerPage = 20
	maxPerPage     = 100
)

// View is a document together with its current content.
type View struct {
	Document      *models.Document `json:"document"`
	Content       json.RawMessage  `json:"content"`
	ContentDigest string           `json:"content_digest"`
}

// ListParams filters a document listing. Dates are "2006-01-02".
type ListParams struct {
	FromDate string
	ToDate   string
	Page     int
	PerPage  int
}

// Page is one page of documents.
type Page struct {
	Documents []models.Document `json:"documents"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	PerPage   int               `json:"per_page"`
}

// Get returns the owner's document with its current content.
func (p *Pipeline) Get(ctx context.Context, ownerID, documentID string) (*View, error) {
	doc, version, err := p.current(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	return &View{Document: doc, Content: json.RawMessage(version.Content), ContentDigest: version.ContentDigest}, nil
}

// GetByDate returns the owner's document for a day.
func (p *Pipeline) GetByDate(ctx context.Context, ownerID, logDate string) (*View, error) {
	doc, err := p.store.Documents.GetByDate(ctx, ownerID, logDate)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.ErrDocumentMissing
	}
	return p.Get(ctx, ownerID, doc.ID)
}

// GetVersion returns version n of one of the owner's documents.
func (p *Pipeline) GetVersion(ctx context.Context, ownerID, documentID string, n int) (*models.DocumentVersion, error) {
	if _, err := p.store.Documents.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, apperr.ErrVersionMissing
	}
	return p.store.Documents.Version(ctx, documentID, n)
}

// ListVersions returns the newest versions of a document, newest first.
func (p *Pipeline) ListVersions(ctx context.Context, ownerID, documentID string) ([]models.VersionInfo, error) {
	if _, err := p.store.Documents.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	infos, err := p.store.Documents.Versions(ctx, documentID, maxVersions)
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []models.VersionInfo{}
	}
	return infos, nil
}

// List returns a page of the owner's documents, newest day first.
func (p *Pipeline) List(ctx context.Context, ownerID string, params ListParams) (*Page, error) {
	page, perPage := params.Page, params.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	for _, d := range []string{params.FromDate, params.ToDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DayLayout, strings.TrimSpace(d)); err != nil {
			return nil, apperr.With(apperr.ErrInvalidInput, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d), err)
		}
	}

	docs, total, err := p.store.Documents.List(ctx, ownerID, db.DocumentFilter{
		FromDate: params.FromDate,
		ToDate:   params.ToDate,
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	})
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return &Page{Documents: docs, Total: total, Page: page, PerPage: perPage}, nil
}

// Restore publishes version n's content as a new version.
func (p *Pipeline) Restore(ctx context.Context, ownerID, documentID string, n int) (*models.Document, error) {
	version, err := p.GetVersion(ctx, ownerID, documentID, n)
	if err != nil {
		return nil, err
	}
	res, err := p.publish(ctx, SaveRequest{
		OwnerID:    ownerID,
		DocumentID: documentID,
		Content:    json.RawMessage(version.Content),
	}, TriggerRestore)
	if err != nil {
		return nil, err
	}
	return res.Document, nil
}
