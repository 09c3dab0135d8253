package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blackjack-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReservationRepo implements ports.ReservationRepository.
type ReservationRepo struct {
	pool Pool
}

// NewReservationRepo creates a new ReservationRepo.
func NewReservationRepo(pool Pool) *ReservationRepo {
	return &ReservationRepo{pool: pool}
}

// Create inserts a reservation within a database transaction.
func (r *ReservationRepo) Create(ctx context.Context, tx pgx.Tx, res *domain.Reservation) error {
	query := `INSERT INTO reservations (id, user_id, round_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, res.ID, res.UserID, res.RoundID, res.Amount, string(res.Status), res.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetForUpdate fetches a reservation with pessimistic locking.
// Returns nil, nil if it does not exist.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Reservation, error) {
	query := `SELECT id, user_id, round_id, amount, status, created_at, settled_at
		FROM reservations WHERE id = $1 FOR UPDATE`

	res := &domain.Reservation{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&res.ID, &res.UserID, &res.RoundID, &res.Amount, &res.Status, &res.CreatedAt, &res.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation for update: %w", err)
	}
	return res, nil
}

// UpdateAmount resizes an open reservation.
func (r *ReservationRepo) UpdateAmount(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	tag, err := tx.Exec(ctx, `UPDATE reservations SET amount = $1 WHERE id = $2 AND status = 'OPEN'`, amount, id)
	if err != nil {
		return fmt.Errorf("update reservation amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open reservation not found: %s", id)
	}
	return nil
}

// MarkSettled closes a reservation.
func (r *ReservationRepo) MarkSettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, settledAt time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE reservations SET status = 'SETTLED', settled_at = $1 WHERE id = $2 AND status = 'OPEN'`, settledAt, id)
	if err != nil {
		return fmt.Errorf("mark reservation settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open reservation not found: %s", id)
	}
	return nil
}

// ListOrphaned returns open reservations created before cutoff whose round
// row was never written, oldest first.
func (r *ReservationRepo) ListOrphaned(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT r.id FROM reservations r
		WHERE r.status = 'OPEN' AND r.created_at < $1
		AND NOT EXISTS (SELECT 1 FROM rounds WHERE rounds.id = r.round_id)
		ORDER BY r.created_at
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list orphaned reservations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan orphaned reservation: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orphaned reservations: %w", err)
	}
	return ids, nil
}
