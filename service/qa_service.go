package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/buildgrid/sitewise/itp"
	model "github.com/buildgrid/sitewise/models"
)

// QAService owns ITP templates and the QA alerts generated from them.
type QAService struct {
	db     *gorm.DB
	notify *Notifier
}

func NewQAService(db *gorm.DB, notify *Notifier) *QAService {
	return &QAService{db: db, notify: notify}
}

// UpsertTemplate creates or replaces a template, matching on name.
func (s *QAService) UpsertTemplate(tpl *model.ItpTemplate) error {
	if tpl.Name == "" {
		return fmt.Errorf("template requires a name")
	}
	if len(tpl.Checklist()) == 0 {
		return fmt.Errorf("template requires at least one checklist item")
	}

	var existing model.ItpTemplate
	err := s.db.Where("name = ?", tpl.Name).First(&existing).Error
	if err == nil {
		update := map[string]interface{}{
			"trade":      tpl.Trade,
			"items":      tpl.Items,
			"source":     tpl.Source,
			"updated_at": time.Now(),
		}
		if err := s.db.Model(&existing).Updates(update).Error; err != nil {
			log.Printf("[UpsertTemplate] Error updating template %s: %v", tpl.Name, err)
			return fmt.Errorf("failed to update template: %w", err)
		}
		tpl.ID = existing.ID
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = time.Now()
	if err := s.db.Create(tpl).Error; err != nil {
		log.Printf("[UpsertTemplate] Error creating template %s: %v", tpl.Name, err)
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// ListTemplates returns all ITP templates.
func (s *QAService) ListTemplates() ([]model.ItpTemplate, error) {
	var templates []model.ItpTemplate
	if err := s.db.Order("name ASC").Find(&templates).Error; err != nil {
		log.Printf("[ListTemplates] Error fetching templates: %v", err)
		return nil, err
	}
	return templates, nil
}

// SyncTemplatesFromDir loads every template file in dir into the registry.
// Parse failures are logged per file; the rest still land.
func (s *QAService) SyncTemplatesFromDir(dir string) {
	templates, errs := itp.LoadDir(dir)
	for _, err := range errs {
		log.Printf("[SyncTemplatesFromDir] %v", err)
	}
	for i := range templates {
		if err := s.UpsertTemplate(&templates[i]); err != nil {
			log.Printf("[SyncTemplatesFromDir] Error upserting %s: %v", templates[i].Name, err)
		}
	}
	log.Printf("[SyncTemplatesFromDir] Synced %d templates from %s", len(templates), dir)
}

// TemplatesForTrade returns the templates applying to a trade: trade-specific
// ones plus general templates with no trade set.
func (s *QAService) TemplatesForTrade(trade string) ([]model.ItpTemplate, error) {
	var templates []model.ItpTemplate
	err := s.db.Where("trade = ? OR trade = ''", trade).Find(&templates).Error
	if err != nil {
		log.Printf("[TemplatesForTrade] Error fetching templates for %s: %v", trade, err)
		return nil, err
	}
	return templates, nil
}

// GenerateForTask raises one alert per applicable checklist item when a task
// enters qa_review. Items that already have a non-resolved alert are skipped
// so re-entering review does not duplicate the checklist.
func (s *QAService) GenerateForTask(task model.Task) error {
	templates, err := s.TemplatesForTrade(task.Trade)
	if err != nil {
		return err
	}

	var existing []model.QAAlert
	if err := s.db.Where("task_id = ? AND status <> ?", task.ID, model.AlertResolved).Find(&existing).Error; err != nil {
		log.Printf("[GenerateForTask] Error fetching existing alerts for task %s: %v", task.ID, err)
		return err
	}

	alerts := BuildStageAlerts(task, templates, existing, time.Now())
	for i := range alerts {
		if err := s.db.Create(&alerts[i]).Error; err != nil {
			log.Printf("[GenerateForTask] Error creating alert: %v", err)
			return fmt.Errorf("failed to create QA alert: %w", err)
		}
		s.notify.Record(task.ProjectID, "qa_alert", alerts[i].ID, "created", "", alerts[i])
	}
	if len(alerts) > 0 {
		log.Printf("[GenerateForTask] Raised %d QA alerts for task %s", len(alerts), task.ID)
	}
	return nil
}

// BuildStageAlerts computes the alerts to raise for a task entering qa_review
// given the applicable templates and the task's current non-resolved alerts.
// Pure so it can be tested without a database.
func BuildStageAlerts(task model.Task, templates []model.ItpTemplate, existing []model.QAAlert, now time.Time) []model.QAAlert {
	open := make(map[string]bool, len(existing))
	for _, a := range existing {
		open[a.TemplateID+"/"+a.ItemKey] = true
	}

	due := task.DueDate
	if due == nil {
		d := now.AddDate(0, 0, 7)
		due = &d
	}

	var alerts []model.QAAlert
	for _, tpl := range templates {
		for _, item := range tpl.Checklist() {
			if open[tpl.ID+"/"+item.Key] {
				continue
			}
			alerts = append(alerts, model.QAAlert{
				ProjectID:  task.ProjectID,
				TaskID:     task.ID,
				TemplateID: tpl.ID,
				ItemKey:    item.Key,
				Title:      fmt.Sprintf("%s: %s", tpl.Name, item.Description),
				Severity:   item.Severity,
				Status:     model.AlertOpen,
				DueDate:    due,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
	}
	return alerts
}

// overdueItemKey marks sweep-generated alerts so the sweep stays idempotent.
const overdueItemKey = "schedule-overdue"

// SweepOverdue raises a high-severity alert for every task past its due date
// that is still in progress or review. Run daily from the cron schedule.
func (s *QAService) SweepOverdue() error {
	now := time.Now()

	var tasks []model.Task
	err := s.db.
		Where("stage IN ?", []string{model.StageInProgress, model.StageQAReview}).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Find(&tasks).Error
	if err != nil {
		log.Printf("[SweepOverdue] Error fetching overdue tasks: %v", err)
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	var existing []model.QAAlert
	err = s.db.
		Where("item_key = ? AND status <> ?", overdueItemKey, model.AlertResolved).
		Find(&existing).Error
	if err != nil {
		log.Printf("[SweepOverdue] Error fetching existing overdue alerts: %v", err)
		return err
	}

	alerts := BuildOverdueAlerts(tasks, existing, now)
	for i := range alerts {
		if err := s.db.Create(&alerts[i]).Error; err != nil {
			log.Printf("[SweepOverdue] Error creating overdue alert: %v", err)
			return fmt.Errorf("failed to create overdue alert: %w", err)
		}
		s.notify.Record(alerts[i].ProjectID, "qa_alert", alerts[i].ID, "created", "", alerts[i])
	}
	log.Printf("[SweepOverdue] %d overdue tasks, %d new alerts", len(tasks), len(alerts))
	return nil
}

// BuildOverdueAlerts computes the overdue alerts to raise, skipping tasks that
// already carry a live overdue alert. Pure for testing.
func BuildOverdueAlerts(tasks []model.Task, existing []model.QAAlert, now time.Time) []model.QAAlert {
	covered := make(map[string]bool, len(existing))
	for _, a := range existing {
		covered[a.TaskID] = true
	}

	var alerts []model.QAAlert
	for _, task := range tasks {
		if covered[task.ID] {
			continue
		}
		alerts = append(alerts, model.QAAlert{
			ProjectID: task.ProjectID,
			TaskID:    task.ID,
			ItemKey:   overdueItemKey,
			Title:     fmt.Sprintf("Task %q is past its due date", task.Title),
			Severity:  model.SeverityHigh,
			Status:    model.AlertOpen,
			DueDate:   task.DueDate,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return alerts
}

// ListAlerts returns a project's alerts filtered by status and severity.
func (s *QAService) ListAlerts(projectID, status, severity string) ([]model.QAAlert, error) {
	query := s.db.Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	var alerts []model.QAAlert
	if err := query.Order("created_at DESC").Find(&alerts).Error; err != nil {
		log.Printf("[ListAlerts] Error fetching alerts for project %s: %v", projectID, err)
		return nil, err
	}
	return alerts, nil
}

// AcknowledgeAlert marks an open alert as acknowledged.
func (s *QAService) AcknowledgeAlert(id, userID string) (model.QAAlert, error) {
	alert, err := s.GetAlert(id)
	if err != nil {
		return alert, err
	}
	if alert.Status != model.AlertOpen {
		return alert, fmt.Errorf("alert is %s, not open: %w", alert.Status, ErrConflict)
	}

	update := map[string]interface{}{
		"status":          model.AlertAcknowledged,
		"acknowledged_by": userID,
		"updated_at":      time.Now(),
	}
	if err := s.db.Model(&alert).Updates(update).Error; err != nil {
		log.Printf("[AcknowledgeAlert] Error updating alert %s: %v", id, err)
		return alert, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	alert.Status = model.AlertAcknowledged
	alert.AcknowledgedBy = userID

	s.notify.Record(alert.ProjectID, "qa_alert", id, "updated", userID, map[string]string{"status": alert.Status})
	return alert, nil
}

// ResolveAlert closes an alert with a resolution note.
func (s *QAService) ResolveAlert(id, userID, note string) (model.QAAlert, error) {
	alert, err := s.GetAlert(id)
	if err != nil {
		return alert, err
	}
	if alert.Status == model.AlertResolved {
		return alert, fmt.Errorf("alert already resolved: %w", ErrConflict)
	}

	now := time.Now()
	update := map[string]interface{}{
		"status":          model.AlertResolved,
		"resolved_by":     userID,
		"resolved_at":     now,
		"resolution_note": note,
		"updated_at":      now,
	}
	if err := s.db.Model(&alert).Updates(update).Error; err != nil {
		log.Printf("[ResolveAlert] Error updating alert %s: %v", id, err)
		return alert, fmt.Errorf("failed to resolve alert: %w", err)
	}
	alert.Status = model.AlertResolved
	alert.ResolvedBy = userID
	alert.ResolvedAt = &now
	alert.ResolutionNote = note

	s.notify.Record(alert.ProjectID, "qa_alert", id, "updated", userID, map[string]string{"status": alert.Status})
	return alert, nil
}

// HasBlockingAlerts reports whether the task has unresolved high-severity
// alerts, which block the move to done.
func (s *QAService) HasBlockingAlerts(taskID string) (bool, error) {
	var count int64
	err := s.db.Model(&model.QAAlert{}).
		Where("task_id = ? AND severity = ? AND status <> ?", taskID, model.SeverityHigh, model.AlertResolved).
		Count(&count).Error
	if err != nil {
		log.Printf("[HasBlockingAlerts] Error counting alerts for task %s: %v", taskID, err)
		return false, err
	}
	return count > 0, nil
}

// GetAlert fetches one alert by id.
func (s *QAService) GetAlert(id string) (model.QAAlert, error) {
	var alert model.QAAlert
	if err := s.db.First(&alert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return alert, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		log.Printf("[GetAlert] Error fetching alert %s: %v", id, err)
		return alert, err
	}
	return alert, nil
}
