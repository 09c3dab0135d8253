package ports

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

import (
	"context"
	"time"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/internal/fairness"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EncryptionService seals server seeds at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService validates bearer tokens issued by the auth service.
type TokenService interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
}

// NonceStore hands out nonces unique per (server, client seed) pair.
type NonceStore interface {
	Next(ctx context.Context, serverID, clientSeed string) (uint64, error)
}

// CommitmentRegistry guards against server seed reuse.
type CommitmentRegistry interface {
	// Register returns false if serverSeedHash was already committed.
	Register(ctx context.Context, serverSeedHash string, ttl time.Duration) (bool, error)
}

// RoundLocker gives a single writer per round.
type RoundLocker interface {
	// Acquire returns ok=false if another request holds the round.
	Acquire(ctx context.Context, roundID uuid.UUID, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, roundID uuid.UUID, token string) error
}

// SettlementCache is the Redis-layer settlement idempotency check (fast path).
type SettlementCache interface {
	Get(ctx context.Context, reservationID uuid.UUID) (*domain.LedgerEntry, error) // nil when absent
	Set(ctx context.Context, entry *domain.LedgerEntry, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// Ledger locks and settles player funds.
type Ledger interface {
	Lock(ctx context.Context, userID, roundID uuid.UUID, amount int64) (*domain.Reservation, error)
	// Extend grows an open reservation to total. Calling it again with the
	// same total is a no-op.
	Extend(ctx context.Context, reservationID uuid.UUID, total int64) (*domain.Reservation, error)
	// Adjust sets an open reservation to exactly total, growing or shrinking
	// the wallet lock with it.
	Adjust(ctx context.Context, reservationID uuid.UUID, total int64) (*domain.Reservation, error)
	// Settle releases the reservation and applies netDelta. Idempotent by reservation.
	Settle(ctx context.Context, reservationID uuid.UUID, netDelta int64) (*domain.LedgerEntry, error)
	Release(ctx context.Context, reservationID uuid.UUID) (*domain.LedgerEntry, error)
	Balance(ctx context.Context, userID uuid.UUID) (*domain.WalletBalance, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.WalletBalance, error)
}

// AuditService appends to and reads a round's hash-chained audit trail.
type AuditService interface {
	// Append chains a new entry onto the round's audit head inside tx and
	// advances round.AuditSeq and round.AuditHead.
	Append(ctx context.Context, tx pgx.Tx, round *domain.Round, kind domain.AuditKind, actor domain.Actor, payload any) (*domain.AuditEntry, error)
	List(ctx context.Context, roundID uuid.UUID) ([]domain.AuditEntry, error)
}

// RoundService is the command interface of the engine.
type RoundService interface {
	CreateRound(ctx context.Context, req CreateRoundRequest) (*CreateRoundResult, error)
	ApplyAction(ctx context.Context, req ActionRequest) (*RoundView, error)
	// ForceSettle runs a round to settlement. uuid.Nil userID is the system.
	ForceSettle(ctx context.Context, roundID, userID uuid.UUID) (*RoundView, error)
	GetRound(ctx context.Context, roundID, userID uuid.UUID) (*RoundView, error)
	Reveal(ctx context.Context, roundID, userID uuid.UUID) (*fairness.Reveal, error)
	AuditTrail(ctx context.Context, roundID, userID uuid.UUID) ([]domain.AuditEntry, error)
}

// CreateRoundRequest holds validated input for round creation.
type CreateRoundRequest struct {
	UserID     uuid.UUID
	BetAmount  int64
	ClientSeed string              // optional, drawn by the server when empty
	Table      *domain.TableConfig // optional, house rules apply when nil
}

// CreateRoundResult is what a player learns before play: the commitment only.
type CreateRoundResult struct {
	RoundID        uuid.UUID  `json:"round_id"`
	ServerSeedHash string     `json:"server_seed_hash"`
	PublicHash     string     `json:"public_hash"`
	Round          *RoundView `json:"round"`
}

// ActionRequest holds validated input for a player action.
type ActionRequest struct {
	RoundID uuid.UUID
	UserID  uuid.UUID
	Action  domain.Action
}

// HandView is a player hand as shown to the client.
type HandView struct {
	Cards     []domain.Card     `json:"cards"`
	Total     int               `json:"total"`
	Soft      bool              `json:"soft"`
	Wager     int64             `json:"wager"`
	Status    domain.HandStatus `json:"status"`
	Doubled   bool              `json:"doubled,omitempty"`
	FromSplit bool              `json:"from_split,omitempty"`
}

// RoundView is the client-safe projection of a round: no shoe, no hidden
// hole card and no server seed before settlement.
type RoundView struct {
	ID             uuid.UUID             `json:"id"`
	Status         domain.RoundStatus    `json:"status"`
	BetAmount      int64                 `json:"bet_amount"`
	InsuranceBet   int64                 `json:"insurance_bet"`
	LockedAmount   int64                 `json:"locked_amount"`
	PlayerHands    []HandView            `json:"player_hands"`
	ActiveHand     int                   `json:"active_hand"`
	DealerCards    []domain.Card         `json:"dealer_cards"`
	DealerTotal    int                   `json:"dealer_total"`
	DealerHidden   bool                  `json:"dealer_hole_hidden"`
	Insurance      domain.InsuranceState `json:"insurance"`
	LegalActions   []domain.ActionKind   `json:"legal_actions"`
	Summary        *domain.Summary       `json:"summary,omitempty"`
	ServerSeedHash string                `json:"server_seed_hash"`
	PublicHash     string                `json:"public_hash"`
	ClientSeed     string                `json:"client_seed"`
	Nonce          uint64                `json:"nonce"`
	ServerSeed     string                `json:"server_seed,omitempty"`
	Table          domain.TableConfig    `json:"table"`
	CreatedAt      time.Time             `json:"created_at"`
	LastActionAt   time.Time             `json:"last_action_at"`
	SettledAt      *time.Time            `json:"settled_at,omitempty"`
	Version        int64                 `json:"version"`
}
