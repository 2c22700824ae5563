package services

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	model "github.com/buildgrid/sitewise/models"
)

// DashboardStats is the per-project summary backing the project dashboard.
type DashboardStats struct {
	TaskCounts         map[string]int  `json:"task_counts"`
	OverdueTasks       int             `json:"overdue_tasks"`
	OpenAlerts         map[string]int  `json:"open_alerts"`
	UpcomingDeliveries int             `json:"upcoming_deliveries"`
	CommittedValue     decimal.Decimal `json:"committed_value"`
	PendingProposals   int             `json:"pending_proposals"`
}

// DashboardService aggregates per-project statistics.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// deliveryWindow is how far ahead "upcoming deliveries" looks.
const deliveryWindow = 7 * 24 * time.Hour

// GetProjectDashboard fetches the project's tasks, alerts, deliveries and
// pending proposals in parallel, then aggregates in memory.
func (s *DashboardService) GetProjectDashboard(ctx context.Context, projectID string) (DashboardStats, error) {
	var (
		tasks      []model.Task
		alerts     []model.QAAlert
		deliveries []model.Delivery
		proposals  int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&tasks).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&alerts).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&deliveries).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&model.TaskChangeProposal{}).
			Where("project_id = ? AND status = ?", projectID, model.ProposalPending).
			Count(&proposals).Error
	})
	if err := g.Wait(); err != nil {
		log.Printf("[GetProjectDashboard] Error fetching dashboard data for %s: %v", projectID, err)
		return DashboardStats{}, err
	}

	now := time.Now()
	return DashboardStats{
		TaskCounts:         CountTasksByStage(tasks),
		OverdueTasks:       CountOverdueTasks(tasks, now),
		OpenAlerts:         CountAlertsBySeverity(alerts),
		UpcomingDeliveries: CountUpcomingDeliveries(deliveries, now, deliveryWindow),
		CommittedValue:     SumCommitted(deliveries),
		PendingProposals:   int(proposals),
	}, nil
}

// CountTasksByStage tallies tasks per lifecycle stage.
func CountTasksByStage(tasks []model.Task) map[string]int {
	counts := make(map[string]int)
	for _, t := range tasks {
		counts[t.Stage]++
	}
	return counts
}

// CountOverdueTasks counts unfinished tasks past their due date.
func CountOverdueTasks(tasks []model.Task, now time.Time) int {
	overdue := 0
	for _, t := range tasks {
		if t.Stage == model.StageDone || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(now) {
			overdue++
		}
	}
	return overdue
}

// CountAlertsBySeverity tallies unresolved alerts per severity.
func CountAlertsBySeverity(alerts []model.QAAlert) map[string]int {
	counts := make(map[string]int)
	for _, a := range alerts {
		if a.Status == model.AlertResolved {
			continue
		}
		counts[a.Severity]++
	}
	return counts
}

// CountUpcomingDeliveries counts undelivered deliveries expected within the
// window from now.
func CountUpcomingDeliveries(deliveries []model.Delivery, now time.Time, window time.Duration) int {
	cutoff := now.Add(window)
	upcoming := 0
	for _, d := range deliveries {
		if d.Status == model.DeliveryDelivered || d.Status == model.DeliveryRejected {
			continue
		}
		if d.ExpectedDate == nil {
			continue
		}
		if d.ExpectedDate.After(now) && d.ExpectedDate.Before(cutoff) {
			upcoming++
		}
	}
	return upcoming
}
