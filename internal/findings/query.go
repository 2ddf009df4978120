package findings

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
)

// NoResults is the query result text for an empty row set.
const NoResults = "No results returned."

// Querier is the slice of *sql.DB the executor needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Executor runs validated statements and renders the rows as text.
type Executor struct {
	q Querier
}

func NewExecutor(q Querier) *Executor {
	return &Executor{q: q}
}

// Execute runs query and returns one {column: value} object per line, in
// column order, or NoResults.
func (e *Executor) Execute(ctx context.Context, query string) (string, error) {
	rows, err := e.q.QueryContext(ctx, query)
	if err != nil {
		return "", errx.WrapDB(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", errx.WrapDB(err)
	}

	var lines []string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", errx.WrapDB(err)
		}
		line, err := renderRow(cols, vals)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return "", errx.WrapDB(err)
	}

	if len(lines) == 0 {
		return NoResults, nil
	}
	return strings.Join(lines, "\n"), nil
}

func renderRow(cols []string, vals []any) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		k, err := json.Marshal(c)
		if err != nil {
			return "", err
		}
		v, err := json.Marshal(normalize(vals[i]))
		if err != nil {
			return "", err
		}
		b.Write(k)
		b.WriteString(": ")
		b.Write(v)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// normalize turns driver values into JSON friendly ones.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
