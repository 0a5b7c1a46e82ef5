package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresProvider reads a business's facts from the business_facts table.
type PostgresProvider struct {
	db *sql.DB
}

func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) Facts(ctx context.Context, businessID string) (map[string]string, error) {
	if p.db == nil {
		return nil, errors.New("knowledge: db not configured")
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT fact_key, fact_value
		FROM business_facts
		WHERE business_id = $1`,
		businessID,
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge: facts %s: %w", businessID, err)
	}
	defer rows.Close()

	facts := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("knowledge: facts %s: %w", businessID, err)
		}
		facts[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: facts %s: %w", businessID, err)
	}
	return facts, nil
}
