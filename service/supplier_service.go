package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	model "github.com/buildgrid/sitewise/models"
)

// SupplierService manages vendors and the deliveries ordered from them.
type SupplierService struct {
	db     *gorm.DB
	notify *Notifier
}

func NewSupplierService(db *gorm.DB, notify *Notifier) *SupplierService {
	return &SupplierService{db: db, notify: notify}
}

// CreateSupplier saves a new vendor.
func (s *SupplierService) CreateSupplier(supplier *model.Supplier) error {
	if supplier.Company == "" {
		return fmt.Errorf("supplier requires a company name")
	}
	supplier.Active = true
	supplier.CreatedAt = time.Now()
	supplier.UpdatedAt = time.Now()
	if err := s.db.Create(supplier).Error; err != nil {
		log.Printf("[CreateSupplier] Error creating supplier: %v", err)
		return fmt.Errorf("failed to create supplier: %w", err)
	}
	return nil
}

// ListSuppliers returns all suppliers, optionally only active ones.
func (s *SupplierService) ListSuppliers(activeOnly bool) ([]model.Supplier, error) {
	query := s.db.Order("company ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var suppliers []model.Supplier
	if err := query.Find(&suppliers).Error; err != nil {
		log.Printf("[ListSuppliers] Error fetching suppliers: %v", err)
		return nil, err
	}
	return suppliers, nil
}

// GetSupplier fetches one supplier by id.
func (s *SupplierService) GetSupplier(id string) (model.Supplier, error) {
	var supplier model.Supplier
	if err := s.db.First(&supplier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return supplier, fmt.Errorf("supplier %s: %w", id, ErrNotFound)
		}
		log.Printf("[GetSupplier] Error fetching supplier %s: %v", id, err)
		return supplier, err
	}
	return supplier, nil
}

var supplierUpdatable = map[string]bool{
	"company":       true,
	"contact_name":  true,
	"contact_email": true,
	"phone":         true,
	"trade":         true,
	"rating":        true,
	"active":        true,
}

// UpdateSupplier applies the whitelisted subset of updates.
func (s *SupplierService) UpdateSupplier(id string, updates map[string]interface{}) (model.Supplier, error) {
	supplier, err := s.GetSupplier(id)
	if err != nil {
		return supplier, err
	}

	filtered := filterUpdates(updates, supplierUpdatable)
	if len(filtered) == 0 {
		return supplier, nil
	}
	filtered["updated_at"] = time.Now()

	if err := s.db.Model(&supplier).Updates(filtered).Error; err != nil {
		log.Printf("[UpdateSupplier] Error updating supplier %s: %v", id, err)
		return supplier, fmt.Errorf("failed to update supplier: %w", err)
	}
	return s.GetSupplier(id)
}

// CreateDelivery saves a delivery after checking its supplier and task
// references.
func (s *SupplierService) CreateDelivery(delivery *model.Delivery, actorID string) error {
	if delivery.ProjectID == "" || delivery.SupplierID == "" {
		return fmt.Errorf("delivery requires project and supplier ids")
	}
	if delivery.Description == "" {
		return fmt.Errorf("delivery requires a description")
	}

	if _, err := s.GetSupplier(delivery.SupplierID); err != nil {
		return err
	}
	if delivery.TaskID != "" {
		var task model.Task
		err := s.db.Where("id = ? AND project_id = ?", delivery.TaskID, delivery.ProjectID).First(&task).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("task %s not in project: %w", delivery.TaskID, ErrConflict)
			}
			return err
		}
	}

	if delivery.Status == "" {
		delivery.Status = model.DeliveryOrdered
	}
	delivery.CreatedAt = time.Now()
	delivery.UpdatedAt = time.Now()
	if err := s.db.Create(delivery).Error; err != nil {
		log.Printf("[CreateDelivery] Error creating delivery: %v", err)
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	s.notify.Record(delivery.ProjectID, "delivery", delivery.ID, "created", actorID, delivery)
	return nil
}

// DeliveryFilter narrows ListDeliveries; the date range applies to expected
// dates.
type DeliveryFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

// ListDeliveries returns a project's deliveries matching the filter.
func (s *SupplierService) ListDeliveries(projectID string, filter DeliveryFilter) ([]model.Delivery, error) {
	query := s.db.Where("project_id = ?", projectID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("expected_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("expected_date <= ?", *filter.To)
	}

	var deliveries []model.Delivery
	if err := query.Order("expected_date ASC").Find(&deliveries).Error; err != nil {
		log.Printf("[ListDeliveries] Error fetching deliveries for project %s: %v", projectID, err)
		return nil, err
	}
	return deliveries, nil
}

// GetDelivery fetches one delivery by id.
func (s *SupplierService) GetDelivery(id string) (model.Delivery, error) {
	var delivery model.Delivery
	if err := s.db.First(&delivery, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return delivery, fmt.Errorf("delivery %s: %w", id, ErrNotFound)
		}
		log.Printf("[GetDelivery] Error fetching delivery %s: %v", id, err)
		return delivery, err
	}
	return delivery, nil
}

// deliveryNext maps each delivery status to its allowed successors.
var deliveryNext = map[string][]string{
	model.DeliveryOrdered:   {model.DeliveryConfirmed, model.DeliveryRejected},
	model.DeliveryConfirmed: {model.DeliveryInTransit, model.DeliveryRejected},
	model.DeliveryInTransit: {model.DeliveryDelivered, model.DeliveryRejected},
}

// CanDeliveryTransition reports whether a delivery may move between statuses.
func CanDeliveryTransition(from, to string) bool {
	for _, next := range deliveryNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateDeliveryStatus advances a delivery through its lifecycle, stamping the
// actual date on arrival.
func (s *SupplierService) UpdateDeliveryStatus(id, status, actorID string) (model.Delivery, error) {
	var delivery model.Delivery
	if err := s.db.First(&delivery, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return delivery, fmt.Errorf("delivery %s: %w", id, ErrNotFound)
		}
		log.Printf("[UpdateDeliveryStatus] Error fetching delivery %s: %v", id, err)
		return delivery, err
	}

	if !CanDeliveryTransition(delivery.Status, status) {
		return delivery, fmt.Errorf("cannot move delivery from %s to %s: %w", delivery.Status, status, ErrConflict)
	}

	now := time.Now()
	update := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if status == model.DeliveryDelivered {
		update["actual_date"] = now
	}
	if err := s.db.Model(&delivery).Updates(update).Error; err != nil {
		log.Printf("[UpdateDeliveryStatus] Error updating delivery %s: %v", id, err)
		return delivery, fmt.Errorf("failed to update delivery: %w", err)
	}
	delivery.Status = status
	if status == model.DeliveryDelivered {
		delivery.ActualDate = &now
	}

	s.notify.Record(delivery.ProjectID, "delivery", id, "updated", actorID, map[string]string{"status": status})
	return delivery, nil
}

// SumCommitted totals the order value of non-rejected deliveries.
func SumCommitted(deliveries []model.Delivery) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deliveries {
		if d.Status == model.DeliveryRejected {
			continue
		}
		total = total.Add(d.OrderValue)
	}
	return total
}
