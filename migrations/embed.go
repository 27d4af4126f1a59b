// Package migrations holds the warehouse schema: grid entities, the ml
// prediction schema, search documents, the outbox, idempotency keys and the
// mutation audit log. Files apply in name order.
package migrations

import "embed"

// FS holds every numbered .sql migration.
//
//go:embed *.sql
var FS embed.FS
