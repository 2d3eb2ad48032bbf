package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fantaasta/auction/internal/domain"
)

// ResultRow is one archived auction result.
type ResultRow struct {
	SessionID   uuid.UUID  `db:"session_id"`
	ID          int64      `db:"id"`
	Player      string     `db:"player"`
	Winner      string     `db:"winner"`
	Price       int64      `db:"price"`
	ConfirmedAt time.Time  `db:"confirmed_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
}

// NewResultRow maps a history entry into its archived form.
func NewResultRow(session uuid.UUID, e domain.HistoryEntry) ResultRow {
	return ResultRow{
		SessionID:   session,
		ID:          e.ID,
		Player:      e.Player,
		Winner:      e.Winner,
		Price:       e.Price,
		ConfirmedAt: time.Unix(e.Timestamp, 0).UTC(),
	}
}

// ResultRepository handles all database operations for archived results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Insert stores a confirmed result.  Re-inserting the same row is a no-op.
func (r *ResultRepository) Insert(ctx context.Context, row ResultRow) error {
	query := `
		INSERT INTO auction_results
			(session_id, id, player, winner, price, confirmed_at)
		VALUES
			(:session_id, :id, :player, :winner, :price, :confirmed_at)
		ON CONFLICT (session_id, id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("result_repo.Insert: %w", err)
	}
	return nil
}

// MarkDeleted stamps deleted_at on a reversed result.
func (r *ResultRepository) MarkDeleted(ctx context.Context, session uuid.UUID, id int64, at time.Time) error {
	query := `
		UPDATE auction_results
		SET deleted_at = $1
		WHERE session_id = $2 AND id = $3 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, at, session, id); err != nil {
		return fmt.Errorf("result_repo.MarkDeleted: %w", err)
	}
	return nil
}
