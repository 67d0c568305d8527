package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// MaxLimit is the hard cap the Get Worker clips every requested limit to.
const MaxLimit = 100

// Snapshot is the paginated read C8 replies with: a pinned view of the
// store as of pagination_id, ordered newest-first, with offset/limit
// applied.
type Snapshot struct {
	PaginationID int64             `json:"paginationId"`
	Offset       int               `json:"offset"`
	Limit        int               `json:"limit"`
	Total        int               `json:"total"`
	Messages     []json.RawMessage `json:"messages"`
}

// Paginate implements the §4.8 algorithm inside one read-only transaction:
// an empty store short-circuits to the zero snapshot regardless of the
// requested pagination id; otherwise a nil paginationID is resolved to the
// current max id, which pins the snapshot against any later inserts.
func (s *Store) Paginate(ctx context.Context, offset, limit int, paginationID *int64) (*Snapshot, error) {
	if limit > MaxLimit {
		limit = MaxLimit
	}

	snap := &Snapshot{Offset: offset, Limit: limit, Messages: []json.RawMessage{}}

	err := s.WithTx(ctx, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
		var maxID sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT max(id) FROM message`).Scan(&maxID); err != nil {
			return fmt.Errorf("select max id: %w", err)
		}
		if !maxID.Valid {
			snap.PaginationID = 0
			snap.Total = 0
			return nil
		}

		pinned := maxID.Int64
		if paginationID != nil {
			pinned = *paginationID
		}
		snap.PaginationID = pinned

		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM message WHERE id <= $1`, pinned,
		).Scan(&snap.Total); err != nil {
			return fmt.Errorf("count messages: %w", err)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT message FROM message WHERE id <= $1 ORDER BY id DESC OFFSET $2 LIMIT $3`,
			pinned, offset, limit,
		)
		if err != nil {
			return fmt.Errorf("select messages: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				return fmt.Errorf("scan message: %w", err)
			}
			snap.Messages = append(snap.Messages, json.RawMessage(raw))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
