package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpLiftsPgxDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "orders_pkey",
		TableName:      "orders",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeConflict, fmt.Errorf("insert order: %w", pgErr), "order exists")

	d := Dump(err)
	assert.Equal(t, CodeConflict, d.Code)
	assert.Equal(t, err.Error(), d.TopMessage)
	assert.Len(t, d.Chain, 3)
	require.NotNil(t, d.PG)
	assert.Equal(t, "23505", d.PG.Code)
	assert.Equal(t, "orders_pkey", d.PG.Constraint)
	assert.Equal(t, "orders", d.PG.Table)
}

func TestDumpLiftsLibPQDiagnostics(t *testing.T) {
	d := Dump(fmt.Errorf("migrate: %w", &pq.Error{Code: "42P01", Table: "outbox_events"}))
	require.NotNil(t, d.PG)
	assert.Equal(t, "42P01", d.PG.Code)
	assert.Equal(t, "outbox_events", d.PG.Table)
	assert.Empty(t, d.Code)
}

func TestDumpWithoutPostgresError(t *testing.T) {
	assert.Nil(t, Dump(New(CodeNotFound, "order not found")).PG)
	assert.Equal(t, ErrorDump{}, Dump(nil))
}
