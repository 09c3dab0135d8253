package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is a player's balance. Locked funds back open round reservations
// and cannot be spent until released.
type Wallet struct {
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"` // In minor units
	Locked    int64     `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available is the spendable part of the balance.
func (w *Wallet) Available() int64 {
	return w.Balance - w.Locked
}

// WalletBalance is the read view returned to callers.
type WalletBalance struct {
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"`
	Locked    int64     `json:"locked"`
	Available int64     `json:"available"`
}

// View builds the read view of the wallet.
func (w *Wallet) View() WalletBalance {
	return WalletBalance{UserID: w.UserID, Balance: w.Balance, Locked: w.Locked, Available: w.Available()}
}

// ReservationStatus is the lifecycle of a fund lock.
type ReservationStatus string

const (
	ReservationOpen    ReservationStatus = "OPEN"
	ReservationSettled ReservationStatus = "SETTLED"
)

// Reservation is the idempotency token behind a round's locked funds.
type Reservation struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	RoundID   uuid.UUID         `json:"round_id"`
	Amount    int64             `json:"amount"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	SettledAt *time.Time        `json:"settled_at,omitempty"`
}

// IsOpen returns true while the reservation still holds funds.
func (r *Reservation) IsOpen() bool {
	return r.Status == ReservationOpen
}

// LedgerEntryKind classifies a balance movement.
type LedgerEntryKind string

const (
	LedgerEntryDeposit    LedgerEntryKind = "DEPOSIT"
	LedgerEntrySettlement LedgerEntryKind = "SETTLEMENT"
)

// LedgerEntry is an immutable record of a balance change.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Kind          LedgerEntryKind `json:"kind"`
	ReservationID *uuid.UUID      `json:"reservation_id,omitempty"`
	RoundID       *uuid.UUID      `json:"round_id,omitempty"`
	Amount        int64           `json:"amount"` // signed net delta
	Released      int64           `json:"released"`
	BalanceAfter  int64           `json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}
