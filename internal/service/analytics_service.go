package service

import (
	"context"
	"sort"
	"time"

	"procureflow/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProjectSpend struct {
	ProjectCode string          `json:"project_code"`
	Total       decimal.Decimal `json:"total"`
}

type AnalyticsResponse struct {
	TotalSpend       decimal.Decimal  `json:"total_spend"`
	OpenRequests     int64            `json:"open_requests"`
	AvgApprovalHours float64          `json:"avg_approval_hours"` // Submitted -> Ordered
	SpendByProject   []ProjectSpend   `json:"spend_by_project"`
	StatusCounts     map[string]int64 `json:"status_counts"`
}

type AnalyticsService interface {
	GetAnalytics(ctx context.Context) (AnalyticsResponse, error)
}

type analyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) AnalyticsService {
	return &analyticsService{db: db}
}

// GetAnalytics computes dashboard aggregates over all purchase requests
func (s *analyticsService) GetAnalytics(ctx context.Context) (AnalyticsResponse, error) {
	response := AnalyticsResponse{
		TotalSpend:   decimal.Zero,
		StatusCounts: map[string]int64{},
	}

	var totalSpend struct {
		Value decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Model(&model.PurchaseRequest{}).
		Select("COALESCE(SUM(total_amount), 0) as value").
		Scan(&totalSpend).Error; err != nil {
		return response, err
	}
	response.TotalSpend = totalSpend.Value

	if err := s.db.WithContext(ctx).Model(&model.PurchaseRequest{}).
		Where("status = ?", model.StatusPending).
		Count(&response.OpenRequests).Error; err != nil {
		return response, err
	}

	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.PurchaseRequest{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return response, err
	}
	for _, row := range statusRows {
		response.StatusCounts[row.Status] = row.Count
	}

	var projectRows []struct {
		ProjectCode string
		Total       decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Model(&model.PurchaseRequest{}).
		Select("project_code, COALESCE(SUM(total_amount), 0) as total").
		Group("project_code").
		Scan(&projectRows).Error; err != nil {
		return response, err
	}
	spend := make([]ProjectSpend, 0, len(projectRows))
	for _, row := range projectRows {
		spend = append(spend, ProjectSpend{ProjectCode: row.ProjectCode, Total: row.Total})
	}
	sort.Slice(spend, func(i, j int) bool {
		return spend[i].Total.GreaterThan(spend[j].Total)
	})
	response.SpendByProject = spend

	avgHours, err := s.avgApprovalHours(ctx)
	if err != nil {
		return response, err
	}
	response.AvgApprovalHours = avgHours

	return response, nil
}

// avgApprovalHours averages the Submitted -> Ordered duration over requests
// whose timelines contain both events. Requests re-submitted multiple times
// count from their first Submitted to their first Ordered event.
func (s *analyticsService) avgApprovalHours(ctx context.Context) (float64, error) {
	var events []model.ApprovalEvent
	if err := s.db.WithContext(ctx).
		Where("action IN ?", []string{model.EventSubmitted, model.EventOrdered}).
		Order("timestamp ASC").
		Find(&events).Error; err != nil {
		return 0, err
	}

	type pair struct {
		submitted time.Time
		ordered   time.Time
	}
	byRequest := map[string]*pair{}
	for _, e := range events {
		p, ok := byRequest[e.RequestID]
		if !ok {
			p = &pair{}
			byRequest[e.RequestID] = p
		}
		switch e.Action {
		case model.EventSubmitted:
			if p.submitted.IsZero() {
				p.submitted = e.Timestamp
			}
		case model.EventOrdered:
			if p.ordered.IsZero() {
				p.ordered = e.Timestamp
			}
		}
	}

	var total time.Duration
	var count int
	for _, p := range byRequest {
		if p.submitted.IsZero() || p.ordered.IsZero() {
			continue
		}
		total += p.ordered.Sub(p.submitted)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return total.Hours() / float64(count), nil
}
