package db

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/vainnor/pomobot/types"
)

// GetTotal returns the stored seconds for participant. found is false when no
// row exists.
func (s *Store) GetTotal(ctx context.Context, participant types.ParticipantID) (seconds float64, found bool, err error) {
	err = s.db.QueryRowContext(ctx, s.rebind(`
		SELECT total_seconds FROM presence_totals WHERE participant_id = $1
	`), string(participant)).Scan(&seconds)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable("get total", err)
	}
	return seconds, true, nil
}

// ApplyBatch adds each delta to its participant's total inside one
// transaction. Rows are created on first sight. Either every update commits or
// none does.
func (s *Store) ApplyBatch(ctx context.Context, updates map[types.ParticipantID]float64) error {
	if len(updates) == 0 {
		return nil
	}

	// stable statement order keeps lock acquisition deterministic on Postgres
	ids := make([]string, 0, len(updates))
	for id := range updates {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO presence_totals (participant_id, total_seconds, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (participant_id) DO UPDATE SET
			total_seconds = presence_totals.total_seconds + excluded.total_seconds,
			updated_at = excluded.updated_at
	`))
	if err != nil {
		return unavailable("prepare batch", err)
	}
	defer stmt.Close()

	now := s.now().Unix()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, updates[types.ParticipantID(id)], now); err != nil {
			s.logError("Presence batch aborted", err)
			return unavailable("apply batch", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit batch", err)
	}
	return nil
}

// DeleteAll removes every presence total.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM presence_totals`); err != nil {
		return unavailable("delete all", err)
	}
	return nil
}

// Top returns up to limit totals ordered by seconds descending, ties broken
// by participant id.
func (s *Store) Top(ctx context.Context, limit int) ([]types.PresenceTotal, error) {
	if limit <= 0 {
		return []types.PresenceTotal{}, nil
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT participant_id, total_seconds
		FROM presence_totals
		ORDER BY total_seconds DESC, participant_id ASC
		LIMIT $1
	`), limit)
	if err != nil {
		return nil, unavailable("query top", err)
	}
	defer rows.Close()

	totals := make([]types.PresenceTotal, 0, limit)
	for rows.Next() {
		var (
			id    string
			total types.PresenceTotal
		)
		if err := rows.Scan(&id, &total.TotalSeconds); err != nil {
			return nil, unavailable("scan top", err)
		}
		total.ParticipantID = types.ParticipantID(id)
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate top", err)
	}
	return totals, nil
}
