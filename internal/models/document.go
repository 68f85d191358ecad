package models

import (
	"time"

	"gorm.io/datatypes"
)

// Document is the single work log entry for one owner and day
type Document struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID        string  `gorm:"not null;size:128;index" json:"owner_id"`
	SessionID      *string `gorm:"size:36" json:"session_id"`
	LogDate        string  `gorm:"not null;size:10" json:"log_date"`
	Title          string  `gorm:"size:500" json:"title"`
	CurrentVersion int     `gorm:"not null;default:1" json:"current_version"`

	// Relationships
	Versions []DocumentVersion `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE;" json:"-"`
}

// DocumentVersion is an immutable full snapshot of a document's content
type DocumentVersion struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	DocumentID     string         `gorm:"not null;size:36;uniqueIndex:ux_versions_doc_number,priority:1" json:"document_id"`
	VersionNumber  int            `gorm:"not null;uniqueIndex:ux_versions_doc_number,priority:2" json:"version_number"`
	Content        datatypes.JSON `gorm:"not null" json:"content"`
	ContentDigest  string         `gorm:"not null;size:64" json:"content_digest"`
	IsFullSnapshot bool           `gorm:"not null;default:true" json:"is_full_snapshot"`
	CreatedAt      time.Time      `json:"created_at"`
}

// VersionInfo is the history listing projection of a DocumentVersion
type VersionInfo struct {
	VersionNumber int       `json:"version_number"`
	ContentDigest string    `json:"content_digest"`
	CreatedAt     time.Time `json:"created_at"`
}
