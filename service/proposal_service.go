package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	model "github.com/buildgrid/sitewise/models"
)

// CreateProposal records a requested change to a task. The patch is
// whitelisted up front so a proposal can never smuggle in a stage change or a
// project move.
func (s *TaskService) CreateProposal(taskID, proposedBy, reason string, changes map[string]interface{}) (model.TaskChangeProposal, error) {
	var proposal model.TaskChangeProposal

	task, err := s.GetTask(taskID)
	if err != nil {
		return proposal, err
	}

	filtered := filterUpdates(changes, taskUpdatable)
	if len(filtered) == 0 {
		return proposal, fmt.Errorf("proposal contains no editable fields")
	}
	if deps, ok := filtered["depends_on"]; ok {
		ids, err := dependencyList(deps)
		if err != nil {
			return proposal, err
		}
		if err := s.checkDependencies(task.ProjectID, task.ID, ids); err != nil {
			return proposal, err
		}
	}
	raw, err := json.Marshal(filtered)
	if err != nil {
		return proposal, fmt.Errorf("failed to encode proposed changes: %w", err)
	}

	proposal = model.TaskChangeProposal{
		TaskID:     task.ID,
		ProjectID:  task.ProjectID,
		ProposedBy: proposedBy,
		Reason:     reason,
		Changes:    datatypes.JSON(raw),
		Status:     model.ProposalPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.db.Create(&proposal).Error; err != nil {
		log.Printf("[CreateProposal] Error creating proposal for task %s: %v", taskID, err)
		return proposal, fmt.Errorf("failed to create proposal: %w", err)
	}

	s.notify.Record(task.ProjectID, "proposal", proposal.ID, "created", proposedBy, proposal)
	return proposal, nil
}

// GetProposal fetches one proposal by id.
func (s *TaskService) GetProposal(id string) (model.TaskChangeProposal, error) {
	var proposal model.TaskChangeProposal
	if err := s.db.First(&proposal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return proposal, fmt.Errorf("proposal %s: %w", id, ErrNotFound)
		}
		log.Printf("[GetProposal] Error fetching proposal %s: %v", id, err)
		return proposal, err
	}
	return proposal, nil
}

// ListProposals returns the project's proposals, optionally filtered by
// status, newest first.
func (s *TaskService) ListProposals(projectID, status string) ([]model.TaskChangeProposal, error) {
	query := s.db.Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var proposals []model.TaskChangeProposal
	if err := query.Order("created_at DESC").Find(&proposals).Error; err != nil {
		log.Printf("[ListProposals] Error fetching proposals for project %s: %v", projectID, err)
		return nil, err
	}
	return proposals, nil
}

// ApproveProposal applies the proposed patch to the task and closes the
// proposal in one transaction. A proposal can be decided exactly once.
func (s *TaskService) ApproveProposal(id, reviewerID, note string) (model.TaskChangeProposal, error) {
	proposal, err := s.decideProposal(id, reviewerID, note, model.ProposalApproved)
	if err != nil {
		return proposal, err
	}

	if task, err := s.GetTask(proposal.TaskID); err == nil {
		s.indexTask(task)
	}
	s.notify.Record(proposal.ProjectID, "proposal", id, "updated", reviewerID, map[string]string{"status": model.ProposalApproved})
	s.notify.Record(proposal.ProjectID, "task", proposal.TaskID, "updated", reviewerID, nil)
	return proposal, nil
}

// RejectProposal closes the proposal without touching the task.
func (s *TaskService) RejectProposal(id, reviewerID, note string) (model.TaskChangeProposal, error) {
	proposal, err := s.decideProposal(id, reviewerID, note, model.ProposalRejected)
	if err != nil {
		return proposal, err
	}
	s.notify.Record(proposal.ProjectID, "proposal", id, "updated", reviewerID, map[string]string{"status": model.ProposalRejected})
	return proposal, nil
}

func (s *TaskService) decideProposal(id, reviewerID, note, decision string) (model.TaskChangeProposal, error) {
	var proposal model.TaskChangeProposal

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proposal, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("proposal %s: %w", id, ErrNotFound)
			}
			return err
		}
		if proposal.Status != model.ProposalPending {
			return fmt.Errorf("proposal already %s: %w", proposal.Status, ErrConflict)
		}

		now := time.Now()
		if decision == model.ProposalApproved {
			var changes map[string]interface{}
			if err := json.Unmarshal(proposal.Changes, &changes); err != nil {
				return fmt.Errorf("failed to decode proposed changes: %w", err)
			}
			applied := filterUpdates(changes, taskUpdatable)
			if deps, ok := applied["depends_on"]; ok {
				ids, err := dependencyList(deps)
				if err != nil {
					return err
				}
				if err := checkDependenciesOn(tx, proposal.ProjectID, proposal.TaskID, ids); err != nil {
					return err
				}
				raw, err := json.Marshal(ids)
				if err != nil {
					return err
				}
				applied["depends_on"] = datatypes.JSON(raw)
			}
			applied["updated_at"] = now
			if err := tx.Model(&model.Task{}).Where("id = ?", proposal.TaskID).Updates(applied).Error; err != nil {
				return fmt.Errorf("failed to apply proposal to task: %w", err)
			}
		}

		update := map[string]interface{}{
			"status":        decision,
			"reviewed_by":   reviewerID,
			"decision_note": note,
			"decided_at":    now,
			"updated_at":    now,
		}
		if err := tx.Model(&proposal).Updates(update).Error; err != nil {
			return fmt.Errorf("failed to close proposal: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Printf("[decideProposal] Error deciding proposal %s: %v", id, err)
		return proposal, err
	}
	return proposal, nil
}
