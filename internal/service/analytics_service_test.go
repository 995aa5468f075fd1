package service

import (
	"context"
	"math"
	"testing"
	"time"

	"procureflow/internal/model"

	"github.com/shopspring/decimal"
)

func TestGetAnalyticsEmpty(t *testing.T) {
	svc := NewAnalyticsService(newTestDB(t))

	resp, err := svc.GetAnalytics(context.Background())
	if err != nil {
		t.Fatalf("GetAnalytics returned error: %v", err)
	}
	if !resp.TotalSpend.IsZero() {
		t.Errorf("total spend = %s, want 0", resp.TotalSpend)
	}
	if resp.OpenRequests != 0 || resp.AvgApprovalHours != 0 {
		t.Errorf("open = %d, avg hours = %f, want zeros", resp.OpenRequests, resp.AvgApprovalHours)
	}
}

func TestGetAnalyticsAggregates(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)

	submitted := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	requests := []model.PurchaseRequest{
		{
			ID:            "REQ-1001",
			ProjectCode:   "PRJ-ALPHA",
			RequesterName: "Morgan Elliot - MFG ENG",
			Priority:      model.PriorityNormal,
			Status:        model.StatusOrdered,
			TotalAmount:   decimal.RequireFromString("100.00"),
			Timeline: []model.ApprovalEvent{
				{Role: model.RoleEmployee, ActorName: "Morgan Elliot - MFG ENG", Action: model.EventSubmitted, Timestamp: submitted},
				{Role: model.RoleESS, ActorName: "Gerald Carter - ESS", Action: model.EventOrdered, Timestamp: submitted.Add(3 * time.Hour)},
			},
		},
		{
			ID:            "REQ-1002",
			ProjectCode:   "PRJ-BETA",
			RequesterName: "Mike Chen - TEST ENG",
			Priority:      model.PriorityNormal,
			Status:        model.StatusPending,
			TotalAmount:   decimal.RequireFromString("20.50"),
			Timeline: []model.ApprovalEvent{
				{Role: model.RoleEmployee, ActorName: "Mike Chen - TEST ENG", Action: model.EventSubmitted, Timestamp: submitted},
			},
		},
	}
	if err := db.Create(&requests).Error; err != nil {
		t.Fatalf("failed to seed requests: %v", err)
	}

	resp, err := svc.GetAnalytics(context.Background())
	if err != nil {
		t.Fatalf("GetAnalytics returned error: %v", err)
	}

	if !resp.TotalSpend.Equal(decimal.RequireFromString("120.5")) {
		t.Errorf("total spend = %s, want 120.5", resp.TotalSpend)
	}
	if resp.OpenRequests != 1 {
		t.Errorf("open requests = %d, want 1", resp.OpenRequests)
	}
	if resp.StatusCounts[model.StatusOrdered] != 1 || resp.StatusCounts[model.StatusPending] != 1 {
		t.Errorf("status counts = %v", resp.StatusCounts)
	}

	if len(resp.SpendByProject) != 2 {
		t.Fatalf("spend by project has %d rows, want 2", len(resp.SpendByProject))
	}
	if resp.SpendByProject[0].ProjectCode != "PRJ-ALPHA" {
		t.Errorf("highest-spend project = %q, want PRJ-ALPHA", resp.SpendByProject[0].ProjectCode)
	}

	// only REQ-1001 completed the Submitted -> Ordered span, at 3 hours
	if math.Abs(resp.AvgApprovalHours-3) > 0.01 {
		t.Errorf("avg approval hours = %f, want 3", resp.AvgApprovalHours)
	}
}
