package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/buildgrid/sitewise/models"
)

func makeTemplate(t *testing.T, id, name, trade string, items []model.ItpItem) model.ItpTemplate {
	t.Helper()
	tpl := model.ItpTemplate{ID: id, Name: name, Trade: trade}
	require.NoError(t, tpl.SetChecklist(items))
	return tpl
}

func TestBuildStageAlerts(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 3)
	task := model.Task{
		ID:        "task-1",
		ProjectID: "proj-1",
		Title:     "Pour slab",
		Trade:     "concrete",
		DueDate:   &due,
	}

	concrete := makeTemplate(t, "tpl-1", "Concrete Pour ITP", "concrete", []model.ItpItem{
		{Key: "formwork", Description: "Formwork inspected and signed off", Severity: model.SeverityHigh},
		{Key: "cure-log", Description: "Curing log started", Severity: model.SeverityMedium},
	})
	general := makeTemplate(t, "tpl-2", "General Handover", "", []model.ItpItem{
		{Key: "photos", Description: "Completion photos uploaded", Severity: model.SeverityLow},
	})

	t.Run("one alert per checklist item", func(t *testing.T) {
		alerts := BuildStageAlerts(task, []model.ItpTemplate{concrete, general}, nil, now)
		require.Len(t, alerts, 3)

		assert.Equal(t, "proj-1", alerts[0].ProjectID)
		assert.Equal(t, "task-1", alerts[0].TaskID)
		assert.Equal(t, "tpl-1", alerts[0].TemplateID)
		assert.Equal(t, "formwork", alerts[0].ItemKey)
		assert.Equal(t, "Concrete Pour ITP: Formwork inspected and signed off", alerts[0].Title)
		assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
		assert.Equal(t, model.AlertOpen, alerts[0].Status)
		require.NotNil(t, alerts[0].DueDate)
		assert.True(t, alerts[0].DueDate.Equal(due))
	})

	t.Run("existing live alerts are not duplicated", func(t *testing.T) {
		existing := []model.QAAlert{
			{TaskID: "task-1", TemplateID: "tpl-1", ItemKey: "formwork", Status: model.AlertOpen},
		}
		alerts := BuildStageAlerts(task, []model.ItpTemplate{concrete, general}, existing, now)
		require.Len(t, alerts, 2)
		for _, a := range alerts {
			assert.NotEqual(t, "formwork", a.ItemKey)
		}
	})

	t.Run("due date falls back to a week out", func(t *testing.T) {
		noDue := task
		noDue.DueDate = nil
		alerts := BuildStageAlerts(noDue, []model.ItpTemplate{general}, nil, now)
		require.Len(t, alerts, 1)
		require.NotNil(t, alerts[0].DueDate)
		assert.True(t, alerts[0].DueDate.Equal(now.AddDate(0, 0, 7)))
	})

	t.Run("no templates means no alerts", func(t *testing.T) {
		assert.Empty(t, BuildStageAlerts(task, nil, nil, now))
	})
}

func TestBuildOverdueAlerts(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -2)
	tasks := []model.Task{
		{ID: "task-1", ProjectID: "proj-1", Title: "Hang drywall", Stage: model.StageInProgress, DueDate: &past},
		{ID: "task-2", ProjectID: "proj-1", Title: "Rough-in electrical", Stage: model.StageQAReview, DueDate: &past},
	}

	t.Run("raises one high alert per task", func(t *testing.T) {
		alerts := BuildOverdueAlerts(tasks, nil, now)
		require.Len(t, alerts, 2)
		assert.Equal(t, "schedule-overdue", alerts[0].ItemKey)
		assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
		assert.Equal(t, `Task "Hang drywall" is past its due date`, alerts[0].Title)
		assert.Equal(t, "", alerts[0].TemplateID)
	})

	t.Run("tasks with a live overdue alert are skipped", func(t *testing.T) {
		existing := []model.QAAlert{
			{TaskID: "task-1", ItemKey: "schedule-overdue", Status: model.AlertAcknowledged},
		}
		alerts := BuildOverdueAlerts(tasks, existing, now)
		require.Len(t, alerts, 1)
		assert.Equal(t, "task-2", alerts[0].TaskID)
	})

	t.Run("no tasks means no alerts", func(t *testing.T) {
		assert.Empty(t, BuildOverdueAlerts(nil, nil, now))
	})
}
