package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vigil-grid/vigil/internal/model"
)

const workOrderColumns = `
	w.work_order_id, COALESCE(w.asset_id, ''), w.work_order_type, w.priority, w.status,
	w.description, w.estimated_cost, w.estimated_hours, w.scheduled_date, w.completed_date,
	COALESCE(w.assigned_crew, ''), COALESCE(a.asset_type, ''), COALESCE(l.region, ''),
	COALESCE(c.circuit_name, '')`

const workOrderJoins = `
	FROM work_order w
	LEFT JOIN asset a ON w.asset_id = a.asset_id
	LEFT JOIN circuit c ON a.circuit_id = c.circuit_id
	LEFT JOIN location l ON a.location_id = l.location_id`

const workOrderOrder = `
	ORDER BY
	    CASE w.priority
	        WHEN 'EMERGENCY' THEN 1
	        WHEN 'URGENT' THEN 2
	        WHEN 'HIGH' THEN 3
	        WHEN 'MEDIUM' THEN 4
	        ELSE 5
	    END,
	    w.scheduled_date ASC NULLS LAST, w.work_order_id`

func scanWorkOrders(rows pgx.Rows) ([]model.WorkOrder, error) {
	var out []model.WorkOrder
	for rows.Next() {
		var w model.WorkOrder
		if err := rows.Scan(
			&w.WorkOrderID, &w.AssetID, &w.WorkOrderType, &w.Priority, &w.Status,
			&w.Description, &w.EstimatedCost, &w.EstimatedHours, &w.ScheduledDate, &w.CompletedDate,
			&w.AssignedCrew, &w.AssetType, &w.Region, &w.CircuitName,
		); err != nil {
			return nil, fmt.Errorf("storage: scan work order: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListWorkOrders returns up to 500 work orders in priority order, optionally
// filtered by status.
func (db *DB) ListWorkOrders(ctx context.Context, status string) ([]model.WorkOrder, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+workOrderColumns+workOrderJoins+`
		WHERE ($1 = '' OR w.status = $1)`+workOrderOrder+`
		LIMIT 500`, status)
	if err != nil {
		return nil, fmt.Errorf("storage: list work orders: %w", err)
	}
	defer rows.Close()
	return scanWorkOrders(rows)
}

// OpenWorkOrders returns unfinished work orders in priority order.
func (db *DB) OpenWorkOrders(ctx context.Context, limit int) ([]model.WorkOrder, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+workOrderColumns+workOrderJoins+`
		WHERE w.status = ANY($1)`+workOrderOrder+`
		LIMIT $2`, model.OpenStatuses, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: open work orders: %w", err)
	}
	defer rows.Close()
	return scanWorkOrders(rows)
}

// WorkOrdersForAsset returns every work order recorded against an asset.
func (db *DB) WorkOrdersForAsset(ctx context.Context, assetID string) ([]model.WorkOrder, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+workOrderColumns+workOrderJoins+`
		WHERE w.asset_id = $1`+workOrderOrder, assetID)
	if err != nil {
		return nil, fmt.Errorf("storage: work orders for asset: %w", err)
	}
	defer rows.Close()
	return scanWorkOrders(rows)
}

// WorkOrderBacklog aggregates open work orders by region, type and status.
func (db *DB) WorkOrderBacklog(ctx context.Context) ([]model.BacklogRow, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT COALESCE(l.region, ''), w.work_order_type, w.status,
		       COUNT(*)::int, COALESCE(SUM(w.estimated_cost), 0)
		FROM work_order w
		LEFT JOIN asset a ON w.asset_id = a.asset_id
		LEFT JOIN location l ON a.location_id = l.location_id
		WHERE w.status = ANY($1)
		GROUP BY l.region, w.work_order_type, w.status
		ORDER BY l.region, w.work_order_type, w.status`, model.OpenStatuses)
	if err != nil {
		return nil, fmt.Errorf("storage: work order backlog: %w", err)
	}
	defer rows.Close()

	var out []model.BacklogRow
	for rows.Next() {
		var r model.BacklogRow
		if err := rows.Scan(&r.Region, &r.WorkOrderType, &r.Status, &r.OrderCount, &r.TotalCost); err != nil {
			return nil, fmt.Errorf("storage: scan backlog row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// workOrderEvent is the NOTIFY payload for a created work order.
type workOrderEvent struct {
	WorkOrderID   string  `json:"work_order_id"`
	AssetID       string  `json:"asset_id"`
	WorkOrderType string  `json:"work_order_type"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// maxIDSuffix bounds the suffixes tried when two orders share a second.
const maxIDSuffix = 20

// CreateWorkOrder inserts a PENDING work order and notifies
// ChannelWorkOrders on commit. The request must already have defaults
// applied. Identifiers are WO-YYYYMMDDHHMMSS, suffixed -2, -3, ... when
// the second is already taken.
// When ctx carries ctxutil.AuditMeta, a mutation_audit row is written in the
// same transaction.
func (db *DB) CreateWorkOrder(ctx context.Context, req model.CreateWorkOrderRequest, now time.Time) (string, error) {
	scheduled, err := time.Parse(time.DateOnly, req.ScheduledDate)
	if err != nil {
		return "", fmt.Errorf("storage: create work order: scheduled date: %w", err)
	}
	base := model.WorkOrderID(now)

	var id string
	err = WithRetry(ctx, 3, 10*time.Millisecond, func() error {
		tx, err := db.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("storage: begin create work order: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		id = ""
		for n := 1; n <= maxIDSuffix && id == ""; n++ {
			candidate := base
			if n > 1 {
				candidate = fmt.Sprintf("%s-%d", base, n)
			}
			err := tx.QueryRow(ctx, `
				INSERT INTO work_order (work_order_id, asset_id, work_order_type, priority, status,
				                        description, estimated_cost, scheduled_date, created_source, created_date)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'API', $9)
				ON CONFLICT (work_order_id) DO NOTHING
				RETURNING work_order_id`,
				candidate, req.AssetID, req.WorkOrderType, req.Priority, model.StatusPending,
				req.Description, req.EstimatedCost, scheduled, now,
			).Scan(&id)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("storage: insert work order: %w", err)
			}
		}
		if id == "" {
			return fmt.Errorf("storage: insert work order: no free id for %s", base)
		}

		event := workOrderEvent{
			WorkOrderID:   id,
			AssetID:       req.AssetID,
			WorkOrderType: req.WorkOrderType,
			Priority:      req.Priority,
			Status:        model.StatusPending,
			EstimatedCost: req.EstimatedCost,
		}
		if entry, ok := auditEntry(ctx, "create_work_order", "work_order", id, event); ok {
			if err := insertMutationAudit(ctx, tx, entry); err != nil {
				return err
			}
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("storage: marshal work order event: %w", err)
		}
		if err := notifyTx(ctx, tx, ChannelWorkOrders, string(payload)); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("storage: commit work order: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
