package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task stages, in lifecycle order. Blocked sits outside the order and can be
// entered from (and left to) any stage except done.
const (
	StagePlanned    = "planned"
	StageScheduled  = "scheduled"
	StageInProgress = "in_progress"
	StageQAReview   = "qa_review"
	StageDone       = "done"
	StageBlocked    = "blocked"
)

// Task is a scheduled unit of site work.
type Task struct {
	// ID is a unique identifier for the task, stored as a UUID in the database.
	// In Elasticsearch, it's indexed as a keyword for exact matching.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id" elastic:"type:keyword"`

	ProjectID string `gorm:"type:uuid;index;not null" json:"project_id" elastic:"type:keyword"`

	Title       string `gorm:"not null" json:"title" elastic:"type:text,analyzer:standard"`
	Description string `json:"description" elastic:"type:text,analyzer:standard"`

	// Stage is the lifecycle stage; transitions are validated server-side.
	Stage string `gorm:"default:planned" json:"stage" elastic:"type:keyword"`

	// Trade selects which ITP templates apply when the task reaches qa_review
	// (e.g. "concrete", "electrical").
	Trade string `json:"trade" elastic:"type:keyword"`

	StartDate *time.Time `json:"start_date"`
	DueDate   *time.Time `json:"due_date" elastic:"type:date"`

	AssigneeID string `json:"assignee_id"`

	// DependsOn is a JSONB array of task ids that must be done before this
	// task may leave planned/scheduled. References are validated on write.
	DependsOn datatypes.JSON `json:"depends_on"`

	SortOrder int `json:"sort_order"`

	CreatedAt time.Time `json:"created_at" elastic:"type:date"`
	UpdatedAt time.Time `json:"updated_at" elastic:"type:date"`

	// SearchContent is a computed field for full-text search, combining Title
	// and Description. It's not stored in the database but is indexed in
	// Elasticsearch.
	SearchContent string `gorm:"-" json:"-" elastic:"type:text,analyzer:standard"`
}

// BeforeSave is a GORM hook to populate SearchContent before indexing.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.SearchContent = t.Title + " " + t.Description
	return nil
}

// Dependencies decodes the DependsOn JSONB array. A missing or malformed
// array is treated as no dependencies.
func (t *Task) Dependencies() []string {
	if len(t.DependsOn) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(t.DependsOn, &ids); err != nil {
		return nil
	}
	return ids
}

// SetDependencies encodes ids into the DependsOn JSONB array.
func (t *Task) SetDependencies(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	t.DependsOn = datatypes.JSON(raw)
	return nil
}
