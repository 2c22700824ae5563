package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	model "github.com/buildgrid/sitewise/models"
)

// ProjectService handles project CRUD and membership-scoped listing.
type ProjectService struct {
	db     *gorm.DB
	notify *Notifier
}

func NewProjectService(db *gorm.DB, notify *Notifier) *ProjectService {
	return &ProjectService{db: db, notify: notify}
}

// CreateProject creates the project and its owner membership in one
// transaction.
func (s *ProjectService) CreateProject(project *model.Project, ownerID string) error {
	project.OwnerID = ownerID
	if project.Status == "" {
		project.Status = model.ProjectActive
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		member := model.ProjectMember{
			ProjectID: project.ID,
			UserID:    ownerID,
			Role:      model.RoleOwner,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		log.Printf("[CreateProject] Error creating project: %v", err)
		return fmt.Errorf("failed to create project: %w", err)
	}

	s.notify.Record(project.ID, "project", project.ID, "created", ownerID, project)
	return nil
}

// GetProject fetches one project by id.
func (s *ProjectService) GetProject(id string) (model.Project, error) {
	var project model.Project
	if err := s.db.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return project, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		log.Printf("[GetProject] Error fetching project %s: %v", id, err)
		return project, err
	}
	return project, nil
}

// ListProjectsForUser returns the projects the user is a member of.
func (s *ProjectService) ListProjectsForUser(userID string) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		log.Printf("[ListProjectsForUser] Error fetching projects for %s: %v", userID, err)
		return nil, err
	}
	return projects, nil
}

// projectUpdatable lists the fields a project update may touch. Last write
// wins for these; anything else in the payload is dropped.
var projectUpdatable = map[string]bool{
	"name":       true,
	"status":     true,
	"address":    true,
	"start_date": true,
	"end_date":   true,
	"budget":     true,
}

// UpdateProject applies the whitelisted subset of updates to the project.
func (s *ProjectService) UpdateProject(id string, updates map[string]interface{}, actorID string) (model.Project, error) {
	project, err := s.GetProject(id)
	if err != nil {
		return project, err
	}

	filtered := filterUpdates(updates, projectUpdatable)
	if len(filtered) == 0 {
		return project, nil
	}
	filtered["updated_at"] = time.Now()

	if err := s.db.Model(&project).Updates(filtered).Error; err != nil {
		log.Printf("[UpdateProject] Error updating project %s: %v", id, err)
		return project, fmt.Errorf("failed to update project: %w", err)
	}

	s.notify.Record(id, "project", id, "updated", actorID, filtered)
	return s.GetProject(id)
}

// filterUpdates drops any key not present in the allowed set.
func filterUpdates(updates map[string]interface{}, allowed map[string]bool) map[string]interface{} {
	filtered := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}
	return filtered
}
