package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/gatekeeper/pkg/gate"
)

// Schema creates the enrollment table. EnsureSchema runs it.
const Schema = `
CREATE TABLE IF NOT EXISTS tfa_enrollments (
	identity   TEXT PRIMARY KEY,
	secret     TEXT NOT NULL DEFAULT '',
	verified   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps one row per identity in tfa_enrollments.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the enrollment table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create enrollment table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, identity string) (*gate.EnrollmentRecord, error) {
	query := `
		SELECT secret, verified, created_at, updated_at
		FROM tfa_enrollments
		WHERE identity = $1
	`

	var record gate.EnrollmentRecord
	err := s.db.QueryRow(ctx, query, identity).Scan(
		&record.Secret,
		&record.Verified,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) Save(ctx context.Context, identity string, record gate.EnrollmentRecord) error {
	query := `
		INSERT INTO tfa_enrollments (identity, secret, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity) DO UPDATE
		SET secret = EXCLUDED.secret,
			verified = EXCLUDED.verified,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.Exec(ctx, query, identity, record.Secret, record.Verified, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts record unless a row with a non-empty secret exists.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, identity string, record gate.EnrollmentRecord) (bool, error) {
	query := `
		INSERT INTO tfa_enrollments (identity, secret, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity) DO UPDATE
		SET secret = EXCLUDED.secret,
			verified = EXCLUDED.verified,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
		WHERE tfa_enrollments.secret = ''
	`

	tag, err := s.db.Exec(ctx, query, identity, record.Secret, record.Verified, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create enrollment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
