// Package ctxutil provides shared context key accessors.
//
// The HTTP layer records who made a state-changing call; storage reads it
// to write the audit row in the same transaction as the change. Both
// packages import ctxutil instead of each other.
package ctxutil

import "context"

type contextKey string

const keyAuditMeta contextKey = "audit_meta"

// AuditMeta carries the request metadata stored with a mutation audit row.
type AuditMeta struct {
	RequestID  string
	ClientIP   string
	HTTPMethod string
	Endpoint   string
}

// WithAuditMeta returns a new context carrying meta.
func WithAuditMeta(ctx context.Context, meta AuditMeta) context.Context {
	return context.WithValue(ctx, keyAuditMeta, meta)
}

// AuditMetaFromContext returns the audit metadata, if any.
func AuditMetaFromContext(ctx context.Context) (AuditMeta, bool) {
	meta, ok := ctx.Value(keyAuditMeta).(AuditMeta)
	return meta, ok
}
