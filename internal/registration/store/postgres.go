package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"checkpoint/internal/registration/models"
	"checkpoint/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// schema is applied idempotently at start. The table keeps the full record as
// a JSONB document; indexed columns are copies for ordering and lookups.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS registrations (
		registration_id TEXT PRIMARY KEY,
		type            TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		document        JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS registrations_created_at_idx ON registrations (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS registrations_plate_idx ON registrations ((document->'plateData'->>'plateNumber'))`,
	`CREATE INDEX IF NOT EXISTS registrations_id_number_idx ON registrations ((document->'identityData'->>'idNumber'))`,
}

// PostgresStore persists registrations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the table and indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure registrations schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, r *models.Registration) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO registrations (registration_id, type, created_at, document) VALUES ($1, $2, $3, $4)`,
		r.RegistrationID, string(r.Type), r.Timestamp, string(doc),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("registration %s: %w", r.RegistrationID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Registration, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM registrations WHERE registration_id = $1`, id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return decodeDocument(doc)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Registration, error) {
	return s.query(ctx, `SELECT document FROM registrations`)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE registration_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, q models.Query) ([]*models.Registration, error) {
	return s.query(ctx, `
		SELECT document FROM registrations
		WHERE ($1 = '' OR upper(document->'plateData'->>'plateNumber') = upper($1))
		  AND ($2 = '' OR upper(document->'identityData'->>'idNumber') = upper($2))
		ORDER BY created_at DESC`,
		q.PlateNumber, q.IDNumber,
	)
}

func (s *PostgresStore) Stats(ctx context.Context, todayStart time.Time) (models.Stats, error) {
	var (
		stats  models.Stats
		latest sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE type = 'entry'),
			count(*) FILTER (WHERE type = 'exit'),
			count(DISTINCT NULLIF(trim(document->'plateData'->>'plateNumber'), '')),
			count(DISTINCT NULLIF(trim(document->'identityData'->>'idNumber'), '')),
			count(*) FILTER (WHERE type = 'entry' AND created_at >= $1),
			count(*) FILTER (WHERE type = 'exit' AND created_at >= $1),
			max(created_at)
		FROM registrations`, todayStart,
	).Scan(
		&stats.Total,
		&stats.EntryCount,
		&stats.ExitCount,
		&stats.UniqueVehicleCount,
		&stats.UniquePersonCount,
		&stats.TodayEntryCount,
		&stats.TodayExitCount,
		&latest,
	)
	if err != nil {
		return models.Stats{}, fmt.Errorf("compute registration stats: %w", err)
	}
	if latest.Valid {
		ts := latest.Time
		stats.LatestTimestamp = &ts
	}
	return stats, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Registration, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		r, err := decodeDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

func decodeDocument(doc []byte) (*models.Registration, error) {
	var r models.Registration
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("decode registration document: %w", err)
	}
	return &r, nil
}
