package ports

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

import (
	"context"
	"time"

	"blackjack-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RoundStore persists rounds with optimistic concurrency.
type RoundStore interface {
	// Load returns nil, nil if the round does not exist.
	Load(ctx context.Context, id uuid.UUID) (*domain.Round, error)
	// Save inserts when expectedVersion is 0, otherwise updates only if the
	// stored version still equals expectedVersion. On success round.Version
	// is expectedVersion+1; a lost race returns ConcurrentModification.
	Save(ctx context.Context, tx pgx.Tx, round *domain.Round, expectedVersion int64) error
	// ListStale returns rounds in one of statuses whose last action is older than before.
	ListStale(ctx context.Context, statuses []domain.RoundStatus, before time.Time, limit int) ([]uuid.UUID, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// GetForUpdate row-locks the wallet, creating an empty one on first use.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	UpdateBalances(ctx context.Context, tx pgx.Tx, userID uuid.UUID, balance, locked int64) error
}

// ReservationRepository persists fund reservations.
type ReservationRepository interface {
	Create(ctx context.Context, tx pgx.Tx, r *domain.Reservation) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Reservation, error)
	UpdateAmount(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error
	MarkSettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, settledAt time.Time) error
	// ListOrphaned returns open reservations created before cutoff whose
	// round was never saved.
	ListOrphaned(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}

// LedgerEntryRepository persists balance movements (DB backup of the settlement cache).
type LedgerEntryRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// GetByReservation returns nil, nil when the reservation was never settled.
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.LedgerEntry, error)
}

// AuditRepository persists hash-chained audit entries. Insert only.
type AuditRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error
	ListByRound(ctx context.Context, roundID uuid.UUID) ([]domain.AuditEntry, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
