package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ItpItem is one checkpoint in an inspection and test plan.
type ItpItem struct {
	Key         string `json:"key" yaml:"key"`
	Description string `json:"description" yaml:"description"`
	Severity    string `json:"severity" yaml:"severity"`
}

// ItpTemplate is an Inspection and Test Plan: a named checklist applied to
// tasks of a given trade when they reach qa_review. Templates are seeded from
// YAML files on disk and can also be upserted over the API.
type ItpTemplate struct {
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// Name is unique; file reloads and API upserts match on it.
	Name  string `gorm:"uniqueIndex;not null" json:"name"`
	Trade string `gorm:"index" json:"trade"`

	// Items is the JSONB-encoded checklist.
	Items datatypes.JSON `json:"items"`

	// Source records where the template came from: "file" or "api".
	Source string `gorm:"default:api" json:"source"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Checklist decodes the Items JSONB array.
func (t *ItpTemplate) Checklist() []ItpItem {
	if len(t.Items) == 0 {
		return nil
	}
	var items []ItpItem
	if err := json.Unmarshal(t.Items, &items); err != nil {
		return nil
	}
	return items
}

// SetChecklist encodes items into the Items JSONB array.
func (t *ItpTemplate) SetChecklist(items []ItpItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	t.Items = datatypes.JSON(raw)
	return nil
}
