package ctxutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditMeta(t *testing.T) {
	_, ok := AuditMetaFromContext(context.Background())
	assert.False(t, ok)

	meta := AuditMeta{RequestID: "req-1", ClientIP: "10.0.0.7", HTTPMethod: "POST", Endpoint: "/work-orders"}
	got, ok := AuditMetaFromContext(WithAuditMeta(context.Background(), meta))
	assert.True(t, ok)
	assert.Equal(t, meta, got)
}
