package services

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	model "github.com/buildgrid/sitewise/models"
)

// proposalTestDB opens a throwaway sqlite database with just the tables the
// proposal lifecycle touches. Schema mirrors the Postgres migration, minus
// the Postgres-only defaults.
func proposalTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "proposals.db")), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE tasks (
			id text PRIMARY KEY,
			project_id text NOT NULL,
			title text NOT NULL,
			description text NOT NULL DEFAULT '',
			stage text NOT NULL DEFAULT 'planned',
			trade text NOT NULL DEFAULT '',
			start_date datetime,
			due_date datetime,
			assignee_id text NOT NULL DEFAULT '',
			depends_on text,
			sort_order integer NOT NULL DEFAULT 0,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE task_change_proposals (
			id text PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			task_id text NOT NULL,
			project_id text NOT NULL,
			proposed_by text NOT NULL,
			reason text NOT NULL DEFAULT '',
			changes text,
			status text NOT NULL DEFAULT 'pending',
			reviewed_by text NOT NULL DEFAULT '',
			decision_note text NOT NULL DEFAULT '',
			decided_at datetime,
			created_at datetime,
			updated_at datetime
		)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedTask(t *testing.T, db *gorm.DB, id, projectID, title string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Task{
		ID:        id,
		ProjectID: projectID,
		Title:     title,
		Stage:     model.StagePlanned,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}).Error)
}

func TestCreateProposalFiltersAndValidates(t *testing.T) {
	db := proposalTestDB(t)
	s := &TaskService{db: db}
	seedTask(t, db, "t1", "p1", "Pour slab")
	seedTask(t, db, "t2", "p1", "Strip formwork")

	t.Run("no editable fields", func(t *testing.T) {
		_, err := s.CreateProposal("t1", "sub-1", "", map[string]interface{}{
			"stage":      model.StageDone,
			"project_id": "other",
		})
		assert.ErrorContains(t, err, "no editable fields")
	})

	t.Run("unknown dependency rejected", func(t *testing.T) {
		_, err := s.CreateProposal("t1", "sub-1", "", map[string]interface{}{
			"depends_on": []interface{}{"ghost"},
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("protected fields stripped from the stored patch", func(t *testing.T) {
		_, err := s.CreateProposal("t1", "sub-1", "slab redesign", map[string]interface{}{
			"title":      "Pour slab rev B",
			"stage":      model.StageDone,
			"project_id": "other",
		})
		require.NoError(t, err)

		var stored model.TaskChangeProposal
		require.NoError(t, db.First(&stored, "task_id = ?", "t1").Error)
		var changes map[string]interface{}
		require.NoError(t, json.Unmarshal(stored.Changes, &changes))
		assert.Equal(t, map[string]interface{}{"title": "Pour slab rev B"}, changes)
		assert.Equal(t, model.ProposalPending, stored.Status)
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := s.CreateProposal("nope", "sub-1", "", map[string]interface{}{"title": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestApproveProposalAppliesPatch(t *testing.T) {
	db := proposalTestDB(t)
	s := &TaskService{db: db}
	seedTask(t, db, "t1", "p1", "Pour slab")
	seedTask(t, db, "t2", "p1", "Strip formwork")

	_, err := s.CreateProposal("t1", "sub-1", "resequence", map[string]interface{}{
		"title":      "Pour slab rev B",
		"depends_on": []interface{}{"t2"},
	})
	require.NoError(t, err)
	var proposal model.TaskChangeProposal
	require.NoError(t, db.First(&proposal, "task_id = ?", "t1").Error)

	_, err = s.ApproveProposal(proposal.ID, "pm-1", "looks right")
	require.NoError(t, err)

	var task model.Task
	require.NoError(t, db.First(&task, "id = ?", "t1").Error)
	assert.Equal(t, "Pour slab rev B", task.Title)
	assert.Equal(t, []string{"t2"}, task.Dependencies())
	assert.Equal(t, model.StagePlanned, task.Stage)

	require.NoError(t, db.First(&proposal, "id = ?", proposal.ID).Error)
	assert.Equal(t, model.ProposalApproved, proposal.Status)
	assert.Equal(t, "pm-1", proposal.ReviewedBy)
	assert.Equal(t, "looks right", proposal.DecisionNote)
	assert.NotNil(t, proposal.DecidedAt)
}

func TestApproveProposalRevalidatesDependencies(t *testing.T) {
	db := proposalTestDB(t)
	s := &TaskService{db: db}
	seedTask(t, db, "t1", "p1", "Pour slab")

	// A stale patch can reference a task deleted after the proposal was
	// filed, so approval has to re-check, not trust creation-time checks.
	raw, err := json.Marshal(map[string]interface{}{"title": "rev B", "depends_on": []string{"ghost"}})
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.TaskChangeProposal{
		ID:         "pr1",
		TaskID:     "t1",
		ProjectID:  "p1",
		ProposedBy: "sub-1",
		Changes:    datatypes.JSON(raw),
		Status:     model.ProposalPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}).Error)

	_, err = s.ApproveProposal("pr1", "pm-1", "")
	assert.ErrorIs(t, err, ErrConflict)

	var task model.Task
	require.NoError(t, db.First(&task, "id = ?", "t1").Error)
	assert.Equal(t, "Pour slab", task.Title)
	assert.Empty(t, task.Dependencies())

	var proposal model.TaskChangeProposal
	require.NoError(t, db.First(&proposal, "id = ?", "pr1").Error)
	assert.Equal(t, model.ProposalPending, proposal.Status)
}

func TestDecideProposalOnce(t *testing.T) {
	db := proposalTestDB(t)
	s := &TaskService{db: db}
	seedTask(t, db, "t1", "p1", "Pour slab")

	_, err := s.CreateProposal("t1", "sub-1", "", map[string]interface{}{"title": "rev B"})
	require.NoError(t, err)
	var proposal model.TaskChangeProposal
	require.NoError(t, db.First(&proposal, "task_id = ?", "t1").Error)

	_, err = s.ApproveProposal(proposal.ID, "pm-1", "")
	require.NoError(t, err)

	_, err = s.ApproveProposal(proposal.ID, "pm-2", "")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.RejectProposal(proposal.ID, "pm-2", "")
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, db.First(&proposal, "id = ?", proposal.ID).Error)
	assert.Equal(t, model.ProposalApproved, proposal.Status)
	assert.Equal(t, "pm-1", proposal.ReviewedBy)
}

func TestRejectProposalLeavesTaskUntouched(t *testing.T) {
	db := proposalTestDB(t)
	s := &TaskService{db: db}
	seedTask(t, db, "t1", "p1", "Pour slab")

	_, err := s.CreateProposal("t1", "sub-1", "", map[string]interface{}{"title": "rev B"})
	require.NoError(t, err)
	var proposal model.TaskChangeProposal
	require.NoError(t, db.First(&proposal, "task_id = ?", "t1").Error)

	_, err = s.RejectProposal(proposal.ID, "pm-1", "out of sequence")
	require.NoError(t, err)

	var task model.Task
	require.NoError(t, db.First(&task, "id = ?", "t1").Error)
	assert.Equal(t, "Pour slab", task.Title)

	require.NoError(t, db.First(&proposal, "id = ?", proposal.ID).Error)
	assert.Equal(t, model.ProposalRejected, proposal.Status)
	assert.Equal(t, "out of sequence", proposal.DecisionNote)
}

func TestFilterUpdates(t *testing.T) {
	got := filterUpdates(map[string]interface{}{
		"title":      "rev B",
		"due_date":   "2026-09-01",
		"stage":      model.StageDone,
		"project_id": "other",
		"id":         "forged",
	}, taskUpdatable)
	assert.Equal(t, map[string]interface{}{"title": "rev B", "due_date": "2026-09-01"}, got)

	assert.Empty(t, filterUpdates(nil, taskUpdatable))
}

func TestDependencyList(t *testing.T) {
	t.Run("string slice", func(t *testing.T) {
		ids, err := dependencyList([]string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})
	t.Run("decoded json slice", func(t *testing.T) {
		ids, err := dependencyList([]interface{}{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})
	t.Run("non-string element", func(t *testing.T) {
		_, err := dependencyList([]interface{}{"a", 7})
		assert.ErrorContains(t, err, "must be strings")
	})
	t.Run("not an array", func(t *testing.T) {
		_, err := dependencyList("a")
		assert.ErrorContains(t, err, "array of task ids")
	})
}
