package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Delivery statuses. A delivery moves ordered -> confirmed -> in_transit ->
// delivered; rejected is terminal and can be entered from any non-delivered
// status.
const (
	DeliveryOrdered   = "ordered"
	DeliveryConfirmed = "confirmed"
	DeliveryInTransit = "in_transit"
	DeliveryDelivered = "delivered"
	DeliveryRejected  = "rejected"
)

// Delivery is a material shipment ordered from a supplier for a task.
type Delivery struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID  string `gorm:"type:uuid;index;not null" json:"project_id"`
	// TaskID is optional; empty when the delivery is not tied to a task.
	TaskID     string `gorm:"index" json:"task_id"`
	SupplierID string `gorm:"type:uuid;not null" json:"supplier_id"`

	Description string `gorm:"not null" json:"description"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`

	// OrderValue is the committed purchase order value; dashboard committed
	// spend sums this across non-rejected deliveries.
	OrderValue decimal.Decimal `gorm:"type:numeric(12,2)" json:"order_value"`

	Status       string     `gorm:"default:ordered" json:"status"`
	ExpectedDate *time.Time `json:"expected_date"`
	ActualDate   *time.Time `json:"actual_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
