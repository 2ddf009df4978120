// Package blob stores report artifacts in the findings database and serves
// them back by key.
package blob

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
	"github.com/trendmicro/cloud-risk-assessment-agent/pkg/sqldb"
)

const DefaultMIME = "application/octet-stream"

// Object describes a stored blob.
type Object struct {
	Key string `json:"object_key"`
	URL string `json:"url"`
}

// Store keeps blobs in the blob_storage table. It is safe for concurrent use.
type Store struct {
	db          *sqldb.DB
	serviceHost string
}

func NewStore(db *sqldb.DB, serviceHost string) *Store {
	return &Store{db: db, serviceHost: strings.TrimRight(serviceHost, "/")}
}

// Migrate creates the blob_storage table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS blob_storage (
		object_key TEXT PRIMARY KEY,
		data %s,
		mime_type TEXT
	)`, s.db.Dialect.BlobType())
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		logx.Error().Err(err).Msg("failed to create blob_storage table")
		return errx.WrapDB(err)
	}
	return nil
}

// ID returns the storage id of an object key: its first path segment.
func ID(objectKey string) string {
	id, _, _ := strings.Cut(objectKey, "/")
	return id
}

// URL returns the public fetch URL for an object key.
func (s *Store) URL(objectKey string) string {
	return fmt.Sprintf("%s/blob/%s", s.serviceHost, ID(objectKey))
}

// Upload inserts or replaces the blob stored under the key's id.
func (s *Store) Upload(ctx context.Context, objectKey string, data []byte, mime string) (Object, error) {
	id := ID(objectKey)
	if id == "" {
		return Object{}, errx.BadRequest(errors.New("empty object key"))
	}
	if mime == "" {
		mime = DefaultMIME
	}

	q := s.db.Dialect.Rebind(`INSERT INTO blob_storage (object_key, data, mime_type) VALUES (?, ?, ?)
		ON CONFLICT (object_key) DO UPDATE SET data = excluded.data, mime_type = excluded.mime_type`)
	if _, err := s.db.ExecContext(ctx, q, id, data, mime); err != nil {
		logx.Error().Err(err).Str("object_key", objectKey).Msg("failed to upload blob")
		return Object{}, errx.WrapDB(err)
	}
	return Object{Key: objectKey, URL: s.URL(objectKey)}, nil
}

// Open returns the blob content and its mime type. A missing key is an
// errx not-found error.
func (s *Store) Open(ctx context.Context, objectKey string) (io.ReadCloser, string, error) {
	var (
		data []byte
		mime sql.NullString
	)
	q := s.db.Dialect.Rebind(`SELECT data, mime_type FROM blob_storage WHERE object_key = ?`)
	err := s.db.QueryRowContext(ctx, q, ID(objectKey)).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", errx.NotFound("blob " + objectKey)
	}
	if err != nil {
		return nil, "", errx.WrapDB(err)
	}
	if !mime.Valid || mime.String == "" {
		mime.String = DefaultMIME
	}
	return io.NopCloser(bytes.NewReader(data)), mime.String, nil
}

// Delete removes the blob. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, objectKey string) error {
	q := s.db.Dialect.Rebind(`DELETE FROM blob_storage WHERE object_key = ?`)
	if _, err := s.db.ExecContext(ctx, q, ID(objectKey)); err != nil {
		return errx.WrapDB(err)
	}
	return nil
}
