package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/models"
)

// DocumentStore persists daily documents and their append-only versions.
type DocumentStore struct {
	db *gorm.DB
}

// SaveInput is one write of a full content snapshot. An empty DocumentID
// creates the document for (OwnerID, LogDate).
type SaveInput struct {
	OwnerID    string
	DocumentID string
	SessionID  *string
	LogDate    string
	Title      *string
	Content    []byte // canonical JSON
	Digest     string
}

// DocumentFilter narrows a document listing. Dates are inclusive.
type DocumentFilter struct {
	FromDate string
	ToDate   string
	Limit    int
	Offset   int
}

// Save creates a document at version 1 or appends version N+1 to an existing
// one. Both paths run in a single transaction.
func (s *DocumentStore) Save(ctx context.Context, in SaveInput) (*models.Document, *models.DocumentVersion, error) {
	var (
		doc     models.Document
		version models.DocumentVersion
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.DocumentID == "" {
			return createDocument(tx, in, &doc, &version)
		}
		return appendVersion(tx, in, &doc, &version)
	})
	if err != nil {
		return nil, nil, err
	}
	return &doc, &version, nil
}

func createDocument(tx *gorm.DB, in SaveInput, doc *models.Document, version *models.DocumentVersion) error {
	var count int64
	if err := tx.Model(&models.Document{}).
		Where("owner_id = ? AND log_date = ?", in.OwnerID, in.LogDate).
		Count(&count).Error; err != nil {
		return Classify(err)
	}
	if count > 0 {
		return apperr.With(apperr.ErrConflictDuplicateDay, "a log entry already exists for "+in.LogDate, nil)
	}

	*doc = models.Document{
		ID:             uuid.NewString(),
		OwnerID:        in.OwnerID,
		SessionID:      in.SessionID,
		LogDate:        in.LogDate,
		CurrentVersion: 1,
	}
	if in.Title != nil {
		doc.Title = *in.Title
	}
	if err := tx.Create(doc).Error; err != nil {
		if IsUniqueViolation(err) {
			return apperr.With(apperr.ErrConflictDuplicateDay, "a log entry already exists for "+in.LogDate, err)
		}
		return Classify(err)
	}
	return insertVersion(tx, doc.ID, 1, in, version)
}

func appendVersion(tx *gorm.DB, in SaveInput, doc *models.Document, version *models.DocumentVersion) error {
	err := tx.Where("id = ? AND owner_id = ?", in.DocumentID, in.OwnerID).Take(doc).Error
	if IsNotFound(err) {
		return apperr.ErrDocumentMissing
	}
	if err != nil {
		return Classify(err)
	}

	next := doc.CurrentVersion + 1
	updates := map[string]interface{}{
		"current_version": next,
		"updated_at":      time.Now().UTC(),
	}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.SessionID != nil {
		updates["session_id"] = *in.SessionID
	}
	res := tx.Model(&models.Document{}).
		Where("id = ? AND current_version = ?", doc.ID, doc.CurrentVersion).
		Updates(updates)
	if res.Error != nil {
		return Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrConcurrentUpdate
	}

	doc.CurrentVersion = next
	doc.UpdatedAt = updates["updated_at"].(time.Time)
	if in.Title != nil {
		doc.Title = *in.Title
	}
	if in.SessionID != nil {
		doc.SessionID = in.SessionID
	}
	return insertVersion(tx, doc.ID, next, in, version)
}

func insertVersion(tx *gorm.DB, docID string, n int, in SaveInput, version *models.DocumentVersion) error {
	*version = models.DocumentVersion{
		ID:             uuid.NewString(),
		DocumentID:     docID,
		VersionNumber:  n,
		Content:        datatypes.JSON(in.Content),
		ContentDigest:  in.Digest,
		IsFullSnapshot: true,
	}
	if err := tx.Create(version).Error; err != nil {
		if IsUniqueViolation(err) {
			return apperr.With(apperr.ErrConcurrentUpdate, "", err)
		}
		return Classify(err)
	}
	return nil
}

// Get returns the owner's document, or ErrDocumentMissing.
func (s *DocumentStore) Get(ctx context.Context, ownerID, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Take(&doc).Error
	if IsNotFound(err) {
		return nil, apperr.ErrDocumentMissing
	}
	if err != nil {
		return nil, Classify(err)
	}
	return &doc, nil
}

// GetByDate returns the owner's document for a day, or nil.
func (s *DocumentStore) GetByDate(ctx context.Context, ownerID, logDate string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND log_date = ?", ownerID, logDate).
		Limit(1).Find(&doc).Error
	if err != nil {
		return nil, Classify(err)
	}
	if doc.ID == "" {
		return nil, nil
	}
	return &doc, nil
}

// Version returns version n of a document, or ErrVersionMissing.
func (s *DocumentStore) Version(ctx context.Context, documentID string, n int) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND version_number = ?", documentID, n).
		Take(&v).Error
	if IsNotFound(err) {
		return nil, apperr.ErrVersionMissing
	}
	if err != nil {
		return nil, Classify(err)
	}
	return &v, nil
}

// Versions lists version metadata newest first.
func (s *DocumentStore) Versions(ctx context.Context, documentID string, limit int) ([]models.VersionInfo, error) {
	var infos []models.VersionInfo
	err := s.db.WithContext(ctx).Model(&models.DocumentVersion{}).
		Select("version_number", "content_digest", "created_at").
		Where("document_id = ?", documentID).
		Order("version_number DESC").
		Limit(limit).
		Scan(&infos).Error
	return infos, Classify(err)
}

// List returns the owner's documents, newest day first, and the unpaged total.
func (s *DocumentStore) List(ctx context.Context, ownerID string, f DocumentFilter) ([]models.Document, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Document{}).Where("owner_id = ?", ownerID)
	if f.FromDate != "" {
		query = query.Where("log_date >= ?", f.FromDate)
	}
	if f.ToDate != "" {
		query = query.Where("log_date <= ?", f.ToDate)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, Classify(err)
	}

	var docs []models.Document
	query = query.Order("log_date DESC")
	if f.Limit > 0 {
		query = query.Limit(f.Limit).Offset(f.Offset)
	}
	if err := query.Find(&docs).Error; err != nil {
		return nil, 0, Classify(err)
	}
	return docs, total, nil
}
