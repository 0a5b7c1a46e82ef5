package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresDirectory backs the caller directory with the identities table.
// Lookup is keyed by (business_id, phone_number).
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) FindOrCreate(ctx context.Context, phone, businessID string, now time.Time) (Identity, bool, error) {
	if d.db == nil {
		return Identity{}, false, errors.New("identity: db not configured")
	}

	var id Identity
	err := d.db.QueryRowContext(ctx, `
		SELECT id, business_id, phone_number, COALESCE(display_name, ''), created_at
		FROM identities
		WHERE business_id = $1 AND phone_number = $2`,
		businessID, phone,
	).Scan(&id.ID, &id.BusinessID, &id.PhoneNumber, &id.DisplayName, &id.CreatedAt)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Identity{}, false, fmt.Errorf("identity: lookup: %w", err)
	}

	id = Identity{
		ID:          uuid.NewString(),
		BusinessID:  businessID,
		PhoneNumber: phone,
		CreatedAt:   now,
	}
	// A concurrent insert for the same caller loses to the existing row.
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO identities (id, business_id, phone_number, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id, phone_number) DO NOTHING`,
		id.ID, id.BusinessID, id.PhoneNumber, id.CreatedAt,
	)
	if err != nil {
		return Identity{}, false, fmt.Errorf("identity: create: %w", err)
	}
	return id, false, nil
}
