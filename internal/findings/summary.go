package findings

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

const (
	// DetailRowLimit caps the detail table handed to the report prompts.
	DetailRowLimit = 30
	// ResourceNamesMaxLen caps the concatenated resource list per issue.
	ResourceNamesMaxLen = 200
)

var detailColumns = []string{
	"id", "type", "description", "resolution", "severity", "risk_score", "resource_count", "resource_names",
}

type detailRow struct {
	id, typ, description, resolution, severity string
	riskScore                                  sql.NullFloat64
	resourceCount                              int64
	resourceNames                              string
}

// Summary returns the per (type, severity) digest and the grouped issue table
// for a category. CategoryAll spans every type.
func (s *Store) Summary(ctx context.Context, category model.Category) (digest, detail *Table, err error) {
	if _, ok := model.ParseCategory(string(category)); !ok {
		return nil, nil, errx.BadRequest(fmt.Errorf("unknown report category %q", category))
	}

	where := ""
	var args []any
	if category != model.CategoryAll {
		where = "WHERE type = ?"
		args = append(args, category.Upper())
	}

	q := s.db.Dialect.Rebind(fmt.Sprintf(`SELECT
		MIN(id) AS id,
		type,
		description,
		MIN(resolution) AS resolution,
		severity,
		risk_score,
		COUNT(*) AS resource_count,
		%s AS resource_names
	FROM results
	%s
	GROUP BY type, avdid, title, description, severity, risk_score
	ORDER BY risk_score DESC NULLS LAST, type, id`, s.db.Dialect.GroupConcat("resource_name"), where))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		logx.Error().Err(err).Str("category", category.String()).Msg("summary query failed")
		return nil, nil, errx.WrapDB(err)
	}
	defer rows.Close()

	var all []detailRow
	for rows.Next() {
		var (
			r                                        detailRow
			description, resolution, severity, names sql.NullString
		)
		if err := rows.Scan(&r.id, &r.typ, &description, &resolution, &severity, &r.riskScore, &r.resourceCount, &names); err != nil {
			return nil, nil, errx.WrapDB(err)
		}
		r.description = description.String
		r.resolution = resolution.String
		r.severity = severity.String
		r.resourceNames = LimitResourceNames(names.String, ResourceNamesMaxLen)
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errx.WrapDB(err)
	}

	return buildDigest(all), buildDetail(all).Head(DetailRowLimit), nil
}

func buildDetail(all []detailRow) *Table {
	t := &Table{Columns: detailColumns, Rows: make([][]string, 0, len(all))}
	for _, r := range all {
		t.Rows = append(t.Rows, []string{
			r.id, r.typ, r.description, r.resolution, r.severity,
			formatScore(r.riskScore), strconv.FormatInt(r.resourceCount, 10), r.resourceNames,
		})
	}
	return t
}

// buildDigest groups the full (untruncated) detail by type and severity.
func buildDigest(all []detailRow) *Table {
	type key struct{ typ, severity string }
	type agg struct{ resources, issues int64 }

	groups := map[key]*agg{}
	for _, r := range all {
		k := key{r.typ, r.severity}
		a, ok := groups[k]
		if !ok {
			a = &agg{}
			groups[k] = a
		}
		a.resources += r.resourceCount
		a.issues++
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].typ != keys[j].typ {
			return keys[i].typ < keys[j].typ
		}
		return keys[i].severity < keys[j].severity
	})

	t := &Table{Columns: []string{"type", "severity", "total_resource_count", "issue_count"}}
	for _, k := range keys {
		a := groups[k]
		t.Rows = append(t.Rows, []string{
			k.typ, k.severity, strconv.FormatInt(a.resources, 10), strconv.FormatInt(a.issues, 10),
		})
	}
	return t
}

// LimitResourceNames shortens a ", "-joined list to at most maxLen bytes,
// cutting on item boundaries and appending "...".
func LimitResourceNames(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	var b strings.Builder
	for _, item := range strings.Split(s, ", ") {
		part := item + ", "
		if b.Len()+len(part) > maxLen-3 {
			return strings.TrimRight(b.String(), ", ") + "..."
		}
		b.WriteString(part)
	}
	return b.String()
}

func formatScore(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', 1, 64)
}
