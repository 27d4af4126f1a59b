package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vigil-grid/vigil/internal/ctxutil"
)

// MutationAuditEntry is an append-only audit event for a state-changing API call.
type MutationAuditEntry struct {
	RequestID    string
	ClientIP     string
	HTTPMethod   string
	Endpoint     string
	Operation    string
	ResourceType string
	ResourceID   string
	AfterData    any
	Metadata     map[string]any
}

// auditEntry builds an entry from the request metadata on ctx. It returns
// false when the call did not come through the HTTP layer (seeding, tests).
func auditEntry(ctx context.Context, operation, resourceType, resourceID string, after any) (MutationAuditEntry, bool) {
	meta, ok := ctxutil.AuditMetaFromContext(ctx)
	if !ok {
		return MutationAuditEntry{}, false
	}
	return MutationAuditEntry{
		RequestID:    meta.RequestID,
		ClientIP:     meta.ClientIP,
		HTTPMethod:   meta.HTTPMethod,
		Endpoint:     meta.Endpoint,
		Operation:    operation,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		AfterData:    after,
	}, true
}

// insertMutationAudit appends a mutation audit event inside tx. The target
// table rejects updates and deletes.
func insertMutationAudit(ctx context.Context, tx pgx.Tx, e MutationAuditEntry) error {
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	var afterJSON []byte
	if e.AfterData != nil {
		var err error
		afterJSON, err = json.Marshal(e.AfterData)
		if err != nil {
			return fmt.Errorf("storage: marshal mutation audit after_data: %w", err)
		}
	}
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("storage: marshal mutation audit metadata: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO mutation_audit (
		     request_id, client_ip, http_method, endpoint,
		     operation, resource_type, resource_id, after_data, metadata
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb)`,
		e.RequestID, e.ClientIP, e.HTTPMethod, e.Endpoint,
		e.Operation, e.ResourceType, e.ResourceID, afterJSON, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("storage: insert mutation audit: %w", err)
	}
	return nil
}

// MutationAudits returns the audit rows for one resource, oldest first.
func (db *DB) MutationAudits(ctx context.Context, resourceType, resourceID string) ([]MutationAuditEntry, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT request_id, client_ip, http_method, endpoint, operation,
		       resource_type, resource_id, after_data, metadata
		FROM mutation_audit
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY id`, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("storage: mutation audits: %w", err)
	}
	defer rows.Close()

	var out []MutationAuditEntry
	for rows.Next() {
		var e MutationAuditEntry
		var after []byte
		if err := rows.Scan(&e.RequestID, &e.ClientIP, &e.HTTPMethod, &e.Endpoint, &e.Operation,
			&e.ResourceType, &e.ResourceID, &after, &e.Metadata); err != nil {
			return nil, fmt.Errorf("storage: mutation audits: scan: %w", err)
		}
		if len(after) > 0 {
			var v map[string]any
			if err := json.Unmarshal(after, &v); err != nil {
				return nil, fmt.Errorf("storage: mutation audits: after_data: %w", err)
			}
			e.AfterData = v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
