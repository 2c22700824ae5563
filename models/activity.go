package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityEvent is the audit record written for every mutation. The same
// payload is emitted to Kafka when an event stream is configured.
type ActivityEvent struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID string         `gorm:"type:uuid;index" json:"project_id"`
	Entity    string         `gorm:"not null" json:"entity"`
	EntityID  string         `json:"entity_id"`
	Op        string         `gorm:"not null" json:"op"`
	ActorID   string         `json:"actor_id"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}
