package postgres

import (
	"context"
	"errors"
	"fmt"

	"blackjack-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerEntryRepo implements ports.LedgerEntryRepository.
type LedgerEntryRepo struct {
	pool Pool
}

// NewLedgerEntryRepo creates a new LedgerEntryRepo.
func NewLedgerEntryRepo(pool Pool) *LedgerEntryRepo {
	return &LedgerEntryRepo{pool: pool}
}

// Create inserts a ledger entry within a database transaction.
func (r *LedgerEntryRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, user_id, kind, reservation_id, round_id, amount, released, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.UserID, string(e.Kind), e.ReservationID, e.RoundID,
		e.Amount, e.Released, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByReservation fetches the settlement entry of a reservation.
// Returns nil, nil if the reservation was never settled.
func (r *LedgerEntryRepo) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT id, user_id, kind, reservation_id, round_id, amount, released, balance_after, created_at
		FROM ledger_entries WHERE reservation_id = $1`

	e := &domain.LedgerEntry{}
	err := r.pool.QueryRow(ctx, query, reservationID).Scan(
		&e.ID, &e.UserID, &e.Kind, &e.ReservationID, &e.RoundID,
		&e.Amount, &e.Released, &e.BalanceAfter, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry by reservation: %w", err)
	}
	return e, nil
}
