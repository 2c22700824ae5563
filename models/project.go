package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project statuses used across the API.
const (
	ProjectActive   = "active"
	ProjectOnHold   = "on_hold"
	ProjectArchived = "archived"
)

// Project is a construction project. Every other record in the system hangs off
// a project id, and the change feed is scoped per project.
type Project struct {
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// Name and Code identify the project; Code is the short site code
	// printed on drawings (e.g. "BG-042") and must be unique.
	Name string `gorm:"not null" json:"name"`
	Code string `gorm:"uniqueIndex" json:"code"`

	Status  string `json:"status"`
	Address string `json:"address"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	// Budget is the approved construction budget in project currency.
	Budget decimal.Decimal `gorm:"type:numeric(14,2)" json:"budget"`

	OwnerID string `gorm:"type:uuid" json:"owner_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
