package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProposalPending  = "pending"
	ProposalApproved = "approved"
	ProposalRejected = "rejected"
)

// TaskChangeProposal is a requested edit to a task by someone without edit
// rights (typically a subcontractor). Changes holds a JSONB patch of the
// proposed field values; approving the proposal applies the patch to the task
// in one transaction.
type TaskChangeProposal struct {
	ID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TaskID    string `gorm:"type:uuid;index;not null" json:"task_id"`
	ProjectID string `gorm:"type:uuid;index;not null" json:"project_id"`

	ProposedBy string `gorm:"not null" json:"proposed_by"`
	Reason     string `json:"reason"`

	Changes datatypes.JSON `json:"changes"`

	Status       string     `gorm:"default:pending" json:"status"`
	ReviewedBy   string     `json:"reviewed_by"`
	DecisionNote string     `json:"decision_note"`
	DecidedAt    *time.Time `json:"decided_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
