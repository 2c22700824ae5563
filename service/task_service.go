package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	model "github.com/buildgrid/sitewise/models"
)

// StageAlerter raises QA alerts when a task enters qa_review. Implemented by
// QAService; an interface here keeps the two services independently testable.
type StageAlerter interface {
	GenerateForTask(task model.Task) error
	HasBlockingAlerts(taskID string) (bool, error)
}

// SearchIndexer mirrors task rows into the search index. Implemented by
// DocumentService when Elasticsearch is configured; nil otherwise.
type SearchIndexer interface {
	IndexTask(task model.Task) error
	RemoveTask(taskID string) error
}

// TaskService handles task CRUD, stage transitions and change proposals.
type TaskService struct {
	db     *gorm.DB
	notify *Notifier
	alerts StageAlerter
	search SearchIndexer
}

func NewTaskService(db *gorm.DB, notify *Notifier, alerts StageAlerter, search SearchIndexer) *TaskService {
	return &TaskService{db: db, notify: notify, alerts: alerts, search: search}
}

// TaskFilter narrows ListTasks. Zero values mean "no filter"; the date range
// applies to due dates.
type TaskFilter struct {
	Stage      string
	AssigneeID string
	From       *time.Time
	To         *time.Time
}

// CreateTask validates dependency references and saves the task.
func (s *TaskService) CreateTask(task *model.Task, actorID string) error {
	if task.ProjectID == "" {
		return fmt.Errorf("task requires a project id")
	}
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("task requires a title")
	}
	if task.Stage == "" {
		task.Stage = model.StagePlanned
	}
	if _, ok := stageRank[task.Stage]; !ok && task.Stage != model.StageBlocked {
		return fmt.Errorf("unknown stage %q", task.Stage)
	}

	if err := s.checkDependencies(task.ProjectID, "", task.Dependencies()); err != nil {
		return err
	}

	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()
	if err := s.db.Create(task).Error; err != nil {
		log.Printf("[CreateTask] Error creating task: %v", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	s.indexTask(*task)
	s.notify.Record(task.ProjectID, "task", task.ID, "created", actorID, task)
	return nil
}

// GetTask fetches one task by id.
func (s *TaskService) GetTask(id string) (model.Task, error) {
	var task model.Task
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		log.Printf("[GetTask] Error fetching task %s: %v", id, err)
		return task, err
	}
	return task, nil
}

// ListTasks returns the project's tasks matching the filter, in schedule
// order.
func (s *TaskService) ListTasks(projectID string, filter TaskFilter) ([]model.Task, error) {
	query := s.db.Where("project_id = ?", projectID)
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.AssigneeID != "" {
		query = query.Where("assignee_id = ?", filter.AssigneeID)
	}
	if filter.From != nil {
		query = query.Where("due_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("due_date <= ?", *filter.To)
	}

	var tasks []model.Task
	if err := query.Order("sort_order ASC, created_at ASC").Find(&tasks).Error; err != nil {
		log.Printf("[ListTasks] Error fetching tasks for project %s: %v", projectID, err)
		return nil, err
	}
	return tasks, nil
}

// taskUpdatable lists the fields a plain task update may touch. Stage moves
// go through ChangeStage so the transition rules apply.
var taskUpdatable = map[string]bool{
	"title":       true,
	"description": true,
	"trade":       true,
	"assignee_id": true,
	"start_date":  true,
	"due_date":    true,
	"sort_order":  true,
	"depends_on":  true,
}

// UpdateTask applies the whitelisted subset of updates. Last write wins.
func (s *TaskService) UpdateTask(id string, updates map[string]interface{}, actorID string) (model.Task, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return task, err
	}

	filtered := filterUpdates(updates, taskUpdatable)
	if deps, ok := filtered["depends_on"]; ok {
		ids, err := dependencyList(deps)
		if err != nil {
			return task, err
		}
		if err := s.checkDependencies(task.ProjectID, task.ID, ids); err != nil {
			return task, err
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return task, err
		}
		filtered["depends_on"] = datatypes.JSON(raw)
	}
	if len(filtered) == 0 {
		return task, nil
	}
	filtered["updated_at"] = time.Now()

	if err := s.db.Model(&task).Updates(filtered).Error; err != nil {
		log.Printf("[UpdateTask] Error updating task %s: %v", id, err)
		return task, fmt.Errorf("failed to update task: %w", err)
	}

	updated, err := s.GetTask(id)
	if err != nil {
		return updated, err
	}
	s.indexTask(updated)
	s.notify.Record(updated.ProjectID, "task", id, "updated", actorID, filtered)
	return updated, nil
}

// DeleteTask removes the task unless another task depends on it.
func (s *TaskService) DeleteTask(id string, actorID string) error {
	task, err := s.GetTask(id)
	if err != nil {
		return err
	}

	siblings, err := s.ListTasks(task.ProjectID, TaskFilter{})
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		for _, dep := range sibling.Dependencies() {
			if dep == id {
				return fmt.Errorf("task %q depends on this task: %w", sibling.Title, ErrConflict)
			}
		}
	}

	if err := s.db.Delete(&task).Error; err != nil {
		log.Printf("[DeleteTask] Error deleting task %s: %v", id, err)
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if s.search != nil {
		if err := s.search.RemoveTask(id); err != nil {
			log.Printf("[DeleteTask] Error removing task %s from search index: %v", id, err)
		}
	}
	s.notify.Record(task.ProjectID, "task", id, "deleted", actorID, nil)
	return nil
}

// ChangeStage moves the task through its lifecycle. Entering qa_review raises
// the ITP checklist alerts; entering done requires finished dependencies and
// no open blocking QA alerts.
func (s *TaskService) ChangeStage(id, stage, actorID string) (model.Task, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return task, err
	}

	if !CanTransition(task.Stage, stage) {
		return task, fmt.Errorf("cannot move task from %s to %s: %w", task.Stage, stage, ErrConflict)
	}

	if stage == model.StageDone {
		stages, err := s.projectStages(task.ProjectID)
		if err != nil {
			return task, err
		}
		if unfinished := UnfinishedDependencies(task.Dependencies(), stages); len(unfinished) > 0 {
			return task, fmt.Errorf("%d dependencies are not done: %w", len(unfinished), ErrConflict)
		}
		if s.alerts != nil {
			blocking, err := s.alerts.HasBlockingAlerts(task.ID)
			if err != nil {
				return task, err
			}
			if blocking {
				return task, fmt.Errorf("open blocking QA alerts remain: %w", ErrConflict)
			}
		}
	}

	if err := s.db.Model(&task).Updates(map[string]interface{}{
		"stage":      stage,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("[ChangeStage] Error updating task %s: %v", id, err)
		return task, fmt.Errorf("failed to change stage: %w", err)
	}
	task.Stage = stage

	if stage == model.StageQAReview && s.alerts != nil {
		if err := s.alerts.GenerateForTask(task); err != nil {
			log.Printf("[ChangeStage] Error generating QA alerts for task %s: %v", id, err)
		}
	}

	s.indexTask(task)
	s.notify.Record(task.ProjectID, "task", id, "updated", actorID, map[string]string{"stage": stage})
	return task, nil
}

// checkDependencies validates that every dependency id references an existing
// task in the same project, and that a task does not depend on itself.
func (s *TaskService) checkDependencies(projectID, selfID string, deps []string) error {
	return checkDependenciesOn(s.db, projectID, selfID, deps)
}

// checkDependenciesOn is the db-handle form, so proposal approval can run the
// same check inside its transaction.
func checkDependenciesOn(db *gorm.DB, projectID, selfID string, deps []string) error {
	if len(deps) == 0 {
		return nil
	}
	known := make(map[string]bool)
	var siblings []model.Task
	if err := db.Select("id").Where("project_id = ?", projectID).Find(&siblings).Error; err != nil {
		log.Printf("[checkDependencies] Error fetching project tasks: %v", err)
		return err
	}
	for _, t := range siblings {
		if t.ID != selfID {
			known[t.ID] = true
		}
	}
	if missing := MissingDependencies(deps, known); len(missing) > 0 {
		return fmt.Errorf("unknown dependency ids %v: %w", missing, ErrConflict)
	}
	return nil
}

// projectStages maps task id to stage for one project.
func (s *TaskService) projectStages(projectID string) (map[string]string, error) {
	var tasks []model.Task
	if err := s.db.Select("id", "stage").Where("project_id = ?", projectID).Find(&tasks).Error; err != nil {
		return nil, err
	}
	stages := make(map[string]string, len(tasks))
	for _, t := range tasks {
		stages[t.ID] = t.Stage
	}
	return stages, nil
}

func (s *TaskService) indexTask(task model.Task) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexTask(task); err != nil {
		log.Printf("[indexTask] Error indexing task %s: %v", task.ID, err)
	}
}

// dependencyList coerces the JSON-decoded depends_on payload into ids.
func dependencyList(v interface{}) ([]string, error) {
	switch deps := v.(type) {
	case []string:
		return deps, nil
	case []interface{}:
		ids := make([]string, 0, len(deps))
		for _, d := range deps {
			id, ok := d.(string)
			if !ok {
				return nil, fmt.Errorf("dependency ids must be strings")
			}
			ids = append(ids, id)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("depends_on must be an array of task ids")
	}
}
