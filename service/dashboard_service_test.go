package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	model "github.com/buildgrid/sitewise/models"
)

func TestCountTasksByStage(t *testing.T) {
	tasks := []model.Task{
		{Stage: model.StagePlanned},
		{Stage: model.StagePlanned},
		{Stage: model.StageInProgress},
		{Stage: model.StageDone},
	}
	counts := CountTasksByStage(tasks)
	assert.Equal(t, 2, counts[model.StagePlanned])
	assert.Equal(t, 1, counts[model.StageInProgress])
	assert.Equal(t, 1, counts[model.StageDone])
	assert.Equal(t, 0, counts[model.StageBlocked])
}

func TestCountOverdueTasks(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)

	tasks := []model.Task{
		{Stage: model.StageInProgress, DueDate: &past},   // overdue
		{Stage: model.StageQAReview, DueDate: &past},     // overdue
		{Stage: model.StageDone, DueDate: &past},         // finished, ignored
		{Stage: model.StageInProgress, DueDate: &future}, // not due yet
		{Stage: model.StageInProgress},                   // no due date
	}
	assert.Equal(t, 2, CountOverdueTasks(tasks, now))
}

func TestCountAlertsBySeverity(t *testing.T) {
	alerts := []model.QAAlert{
		{Severity: model.SeverityHigh, Status: model.AlertOpen},
		{Severity: model.SeverityHigh, Status: model.AlertAcknowledged},
		{Severity: model.SeverityHigh, Status: model.AlertResolved},
		{Severity: model.SeverityLow, Status: model.AlertOpen},
	}
	counts := CountAlertsBySeverity(alerts)
	assert.Equal(t, 2, counts[model.SeverityHigh])
	assert.Equal(t, 1, counts[model.SeverityLow])
	assert.Equal(t, 0, counts[model.SeverityMedium])
}

func TestCountUpcomingDeliveries(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	in3 := now.AddDate(0, 0, 3)
	in10 := now.AddDate(0, 0, 10)
	past := now.AddDate(0, 0, -1)

	deliveries := []model.Delivery{
		{Status: model.DeliveryConfirmed, ExpectedDate: &in3}, // counted
		{Status: model.DeliveryOrdered, ExpectedDate: &in10},  // beyond window
		{Status: model.DeliveryDelivered, ExpectedDate: &in3}, // already arrived
		{Status: model.DeliveryRejected, ExpectedDate: &in3},  // rejected
		{Status: model.DeliveryInTransit, ExpectedDate: &past},
		{Status: model.DeliveryOrdered},
	}
	assert.Equal(t, 1, CountUpcomingDeliveries(deliveries, now, 7*24*time.Hour))
}

func TestSumCommitted(t *testing.T) {
	deliveries := []model.Delivery{
		{Status: model.DeliveryOrdered, OrderValue: decimal.RequireFromString("1500.50")},
		{Status: model.DeliveryDelivered, OrderValue: decimal.RequireFromString("2499.50")},
		{Status: model.DeliveryRejected, OrderValue: decimal.RequireFromString("9000")},
	}
	assert.True(t, SumCommitted(deliveries).Equal(decimal.RequireFromString("4000")))
	assert.True(t, SumCommitted(nil).Equal(decimal.Zero))
}
