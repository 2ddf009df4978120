package findings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(newTestStore(t).DB())

	tests := []struct {
		name  string
		query string
		ok    bool
	}{
		{name: "select", query: "SELECT * FROM results", ok: true},
		{name: "lowercase with semicolon", query: "select id from results where type = 'AWS';", ok: true},
		{name: "cte", query: "WITH top AS (SELECT id, risk_score FROM results) SELECT id FROM top ORDER BY risk_score DESC", ok: true},
		{name: "keyword inside literal", query: "SELECT title FROM results WHERE description LIKE '%drop table%'", ok: true},
		{name: "escaped quote", query: "SELECT id FROM results WHERE title = 'it''s; delete'", ok: true},
		{name: "trailing comment", query: "SELECT id FROM results; -- done", ok: true},
		{name: "block comment", query: "SELECT /* update */ id FROM results", ok: true},
		{name: "offset is not set", query: "SELECT id FROM results LIMIT 5 OFFSET 2", ok: true},

		{name: "empty", query: "   "},
		{name: "only comment", query: "-- nothing"},
		{name: "delete", query: "DELETE FROM results"},
		{name: "insert", query: "INSERT INTO results (type) VALUES ('x')"},
		{name: "stacked", query: "SELECT 1; DROP TABLE results"},
		{name: "select into", query: "SELECT * INTO backup FROM results"},
		{name: "pragma", query: "PRAGMA table_info(results)"},
		{name: "cte with write", query: "WITH x AS (DELETE FROM results RETURNING id) SELECT * FROM x"},
		{name: "unknown table", query: "SELECT * FROM findings"},
		{name: "unknown column", query: "SELECT nope FROM results"},
		{name: "unterminated literal", query: "SELECT 'abc FROM results"},
		{name: "unterminated comment", query: "SELECT id /* FROM results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.query)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRejected)
		})
	}
}
