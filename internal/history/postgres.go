package history

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

// PostgresStore keeps notified slots in a notified_slots table, one row
// per (account, doctor_name, slot_at). Duplicate records are allowed;
// IsKnown only asks for existence.
type PostgresStore struct {
	db      *sqlx.DB
	account string
}

func NewPostgresStore(db *sqlx.DB, account string) *PostgresStore {
	return &PostgresStore{db: db, account: account}
}

// Schema is the DDL for the backing table, applied by the operator.
const Schema = `
CREATE TABLE IF NOT EXISTS notified_slots (
	id BIGSERIAL PRIMARY KEY,
	account TEXT NOT NULL,
	doctor_name TEXT NOT NULL,
	slot_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_notified_slots_lookup
	ON notified_slots (account, doctor_name, slot_at);
`

func (s *PostgresStore) IsKnown(ctx context.Context, doctorName string, at time.Time) (bool, error) {
	var known bool
	err := s.db.GetContext(ctx, &known,
		`SELECT EXISTS (
			SELECT 1 FROM notified_slots
			WHERE account = $1 AND doctor_name = $2 AND slot_at = $3
		)`,
		s.account, doctorName, at)
	if err != nil {
		return false, apperrors.NewStorageUnavailable(err)
	}
	return known, nil
}

func (s *PostgresStore) Record(ctx context.Context, doctorName string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notified_slots (account, doctor_name, slot_at) VALUES ($1, $2, $3)`,
		s.account, doctorName, at)
	if err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	return nil
}
