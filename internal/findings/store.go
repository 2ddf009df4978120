// Package findings owns the scan results database: schema, report summaries,
// and the validated execution of model-generated queries.
package findings

import (
	"context"
	"fmt"
	"strings"

	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
	"github.com/trendmicro/cloud-risk-assessment-agent/pkg/sqldb"
)

var resultColumns = []string{
	"type", "id", "resource_name", "service_name", "avdid", "title", "description",
	"resolution", "severity", "message", "cvss_strings", "risk_score", "cause_metadata",
}

// Store is the findings database. It is safe for concurrent use.
type Store struct {
	db *sqldb.DB
}

func NewStore(db *sqldb.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying pool for the validator and executor.
func (s *Store) DB() *sqldb.DB {
	return s.db
}

// Migrate creates the results table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS results (
		type TEXT,
		id TEXT,
		resource_name TEXT,
		service_name TEXT,
		avdid TEXT,
		title TEXT,
		description TEXT,
		resolution TEXT,
		severity TEXT,
		message TEXT,
		cvss_strings TEXT,
		risk_score %s,
		cause_metadata TEXT,
		PRIMARY KEY (type, id, resource_name)
	)`, s.db.Dialect.RealType())

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		logx.Error().Err(err).Msg("failed to create results table")
		return errx.WrapDB(err)
	}
	return nil
}

// Upsert inserts or replaces the given findings in a single transaction.
func (s *Store) Upsert(ctx context.Context, items []Finding) error {
	if len(items) == 0 {
		return nil
	}

	updates := make([]string, 0, len(resultColumns))
	for _, c := range resultColumns[3:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	stmt := s.db.Dialect.Rebind(fmt.Sprintf(
		`INSERT INTO results (%s) VALUES (%s)
		ON CONFLICT (type, id, resource_name) DO UPDATE SET %s`,
		strings.Join(resultColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(resultColumns)), ", "),
		strings.Join(updates, ", "),
	))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapDB(err)
	}
	defer tx.Rollback()

	ps, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return errx.WrapDB(err)
	}
	defer ps.Close()

	for _, f := range items {
		if _, err := ps.ExecContext(ctx,
			f.Type, f.ID, f.ResourceName, f.ServiceName, f.AVDID, f.Title, f.Description,
			f.Resolution, f.Severity, f.Message, f.CVSSStrings, f.RiskScore, f.CauseMetadata,
		); err != nil {
			logx.Error().Err(err).Str("id", f.ID).Str("type", f.Type).Msg("failed to upsert finding")
			return errx.WrapDB(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.WrapDB(err)
	}
	return nil
}

// Seed migrates the schema and loads SampleFindings.
func (s *Store) Seed(ctx context.Context) error {
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	if err := s.Upsert(ctx, SampleFindings); err != nil {
		return err
	}
	logx.Info().Int("count", len(SampleFindings)).Msg("sample findings loaded")
	return nil
}
