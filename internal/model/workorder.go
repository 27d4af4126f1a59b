package model

import (
	"fmt"
	"strings"
	"time"
)

// Work order statuses.
const (
	StatusPending    = "PENDING"
	StatusScheduled  = "SCHEDULED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// OpenStatuses are the statuses counted as backlog.
var OpenStatuses = []string{StatusPending, StatusScheduled, StatusInProgress}

// WorkOrder is a field work order joined with its asset's region and circuit.
type WorkOrder struct {
	WorkOrderID    string     `json:"work_order_id"`
	AssetID        string     `json:"asset_id"`
	WorkOrderType  string     `json:"work_order_type"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	Description    string     `json:"description"`
	EstimatedCost  float64    `json:"estimated_cost"`
	EstimatedHours float64    `json:"estimated_hours"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate  *time.Time `json:"completed_date,omitempty"`
	AssignedCrew   string     `json:"assigned_crew,omitempty"`
	AssetType      string     `json:"asset_type,omitempty"`
	Region         string     `json:"region,omitempty"`
	CircuitName    string     `json:"circuit_name,omitempty"`
}

// Overdue reports whether an unfinished order is past its scheduled date.
func (w WorkOrder) Overdue(now time.Time) bool {
	if w.Status == StatusCompleted || w.ScheduledDate == nil {
		return false
	}
	return w.ScheduledDate.Before(civilDay(now))
}

// Band maps the work order priority onto a P1..P4 band.
func (w WorkOrder) Band() string {
	switch w.Priority {
	case "EMERGENCY":
		return BandEmergency
	case "URGENT", "HIGH":
		return BandUrgent
	case "MEDIUM":
		return BandStandard
	default:
		return BandRoutine
	}
}

// WorkOrderSummary counts work orders by lifecycle state.
type WorkOrderSummary struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}

// SummarizeWorkOrders computes the summary block for /work-orders.
// Open counts orders not yet started (PENDING or SCHEDULED).
func SummarizeWorkOrders(items []WorkOrder, now time.Time) WorkOrderSummary {
	s := WorkOrderSummary{Total: len(items)}
	for _, w := range items {
		switch w.Status {
		case StatusPending, StatusScheduled:
			s.Open++
		case StatusInProgress:
			s.InProgress++
		case StatusCompleted:
			s.Completed++
		}
		if w.Overdue(now) {
			s.Overdue++
		}
	}
	return s
}

// BacklogRow aggregates open work orders by region, type and status.
type BacklogRow struct {
	Region        string  `json:"region"`
	WorkOrderType string  `json:"work_order_type"`
	Status        string  `json:"status"`
	OrderCount    int     `json:"order_count"`
	TotalCost     float64 `json:"total_cost"`
}

// CreateWorkOrderRequest is the request body for POST /work-orders.
type CreateWorkOrderRequest struct {
	AssetID       string  `json:"asset_id"`
	WorkOrderType string  `json:"work_order_type,omitempty"`
	Priority      string  `json:"priority,omitempty"`
	Description   string  `json:"description,omitempty"`
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
	ScheduledDate string  `json:"scheduled_date,omitempty"`
}

// WithDefaults fills unset fields and validates the rest.
func (r CreateWorkOrderRequest) WithDefaults(now time.Time) (CreateWorkOrderRequest, error) {
	r.AssetID = strings.TrimSpace(r.AssetID)
	if r.AssetID == "" {
		return r, fmt.Errorf("asset_id is required")
	}
	if r.WorkOrderType == "" {
		r.WorkOrderType = DefaultWorkOrderType
	}
	if r.Priority == "" {
		r.Priority = DefaultWorkOrderPrio
	}
	r.Priority = strings.ToUpper(r.Priority)
	if r.EstimatedCost < 0 {
		return r, fmt.Errorf("estimated_cost must not be negative")
	}
	if len(r.Description) > MaxWorkOrderDescLen {
		return r, fmt.Errorf("description exceeds maximum length of %d bytes", MaxWorkOrderDescLen)
	}
	if r.ScheduledDate == "" {
		r.ScheduledDate = now.Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, r.ScheduledDate); err != nil {
		return r, fmt.Errorf("scheduled_date must be YYYY-MM-DD")
	}
	return r, nil
}

// WorkOrderID formats the identifier assigned at creation time.
func WorkOrderID(now time.Time) string {
	return "WO-" + now.Format("20060102150405")
}

// CreateWorkOrderResponse is the response for POST /work-orders.
type CreateWorkOrderResponse struct {
	WorkOrderID string `json:"work_order_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}
