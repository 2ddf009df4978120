package findings

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trendmicro/cloud-risk-assessment-agent/pkg/sqldb"
)

// newTestStore returns a seeded in-memory store. A single connection keeps
// every query on the same :memory: database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	raw, err := sql.Open(sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { raw.Close() })

	db, err := sqldb.Wrap(raw, sqldb.DriverSQLite)
	require.NoError(t, err)

	s := NewStore(db)
	require.NoError(t, s.Seed(context.Background()))
	return s
}
