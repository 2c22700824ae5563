package models

import "time"

const (
	AlertOpen         = "open"
	AlertAcknowledged = "acknowledged"
	AlertResolved     = "resolved"
)

// Alert severities mirror ITP item severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// QAAlert is a checklist reminder raised against a task, either when the task
// enters qa_review (one alert per applicable ITP checklist item) or by the
// daily overdue sweep.
type QAAlert struct {
	ID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID string `gorm:"type:uuid;index;not null" json:"project_id"`
	TaskID    string `gorm:"type:uuid;index;not null" json:"task_id"`

	// TemplateID and ItemKey point back at the ITP checklist item that raised
	// the alert. Both are empty for sweep-generated overdue alerts.
	TemplateID string `json:"template_id"`
	ItemKey    string `json:"item_key"`

	Title    string `gorm:"not null" json:"title"`
	Severity string `json:"severity"`
	Status   string `gorm:"default:open" json:"status"`

	DueDate *time.Time `json:"due_date"`

	AcknowledgedBy string     `json:"acknowledged_by"`
	ResolvedBy     string     `json:"resolved_by"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	ResolutionNote string     `json:"resolution_note"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
