package models

import (
	"time"

	"gorm.io/gorm"
)

// Document categories.
const (
	DocDrawing = "drawing"
	DocPermit  = "permit"
	DocSafety  = "safety"
	DocQA      = "qa"
	DocOther   = "other"
)

// Document represents a project document (drawing, permit, safety record) with
// fields for database and search indexing.
type Document struct {
	// ID is a unique identifier for the document, stored as a UUID in the
	// database. In Elasticsearch, it's indexed as a keyword for exact matching.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id" elastic:"type:keyword"`

	ProjectID string `gorm:"type:uuid;index;not null" json:"project_id" elastic:"type:keyword"`

	// TaskID is set when the document belongs to a specific task (e.g. an ITP
	// sign-off sheet); nil for project-level documents.
	TaskID *string `gorm:"type:uuid" json:"task_id" elastic:"type:keyword"`

	// Title is the document's title, indexed as text for full-text search.
	Title string `json:"title" elastic:"type:text,analyzer:standard"`

	// FileType indicates the type of the file (e.g. "pdf", "dwg"), indexed as
	// a keyword.
	FileType string `json:"file_type" elastic:"type:keyword"`

	Category string `json:"category" elastic:"type:keyword"`

	// OriginalURL is the storage URL where the original file lives, indexed as
	// a keyword.
	OriginalURL string `json:"original_url" elastic:"type:keyword"`

	UploadedBy string `json:"uploaded_by" elastic:"type:keyword"`

	CreatedAt time.Time `json:"created_at" elastic:"type:date"`
	UpdatedAt time.Time `json:"updated_at" elastic:"type:date"`

	// SearchContent is a computed field for full-text search, combining Title
	// and Category. It's not stored in the database (gorm:"-") but is indexed
	// in Elasticsearch.
	SearchContent string `gorm:"-" json:"-" elastic:"type:text,analyzer:standard"`
}

// BeforeSave is a GORM hook to populate SearchContent before indexing.
func (d *Document) BeforeSave(tx *gorm.DB) error {
	d.SearchContent = d.Title + " " + d.Category
	return nil
}
