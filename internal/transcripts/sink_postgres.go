package transcripts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voiceagent-platform/pkg/utils"
)

// PostgresSink writes transcripts to the call_transcripts and
// transcript_messages tables in a single transaction.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Save(ctx context.Context, t Transcript) error {
	if s.db == nil {
		return errors.New("transcripts: db not configured")
	}

	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO call_transcripts
				(id, call_id, business_id, user_id, caller_phone, end_reason, started_at, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, t.CallID, t.BusinessID, nullable(t.UserID), t.CallerPhone,
			nullable(t.EndReason), t.StartedAt, t.EndedAt,
		)
		if err != nil {
			return fmt.Errorf("transcripts: insert transcript: %w", err)
		}

		for i, m := range t.Messages {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO transcript_messages
					(id, transcript_id, seq, role, content, spoken_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				m.ID, t.ID, i, string(m.Role), m.Content, m.Timestamp,
			)
			if err != nil {
				return fmt.Errorf("transcripts: insert message %d: %w", i, err)
			}
		}
		return nil
	})
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
