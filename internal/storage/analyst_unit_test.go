package storage

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReadOnlySQL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"SELECT 1", "SELECT 1", true},
		{"  select * from asset;  ", "select * from asset", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", "WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"", "", false},
		{";", "", false},
		{"DELETE FROM asset", "", false},
		{"SELECT 1; SELECT 2", "", false},
		{"EXPLAIN SELECT 1", "", false},
	}
	for _, tt := range tests {
		got, err := CheckReadOnlySQL(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrUnsafeQuery, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPlainValue(t *testing.T) {
	n := pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}
	assert.InDelta(t, 12.5, plainValue(n), 1e-9)
	assert.Nil(t, plainValue(pgtype.Numeric{}))

	id := uuid.New()
	assert.Equal(t, id.String(), plainValue([16]byte(id)))
	assert.Equal(t, "AST-001", plainValue("AST-001"))
	assert.Equal(t, int32(7), plainValue(int32(7)))
}
