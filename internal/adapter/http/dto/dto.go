package dto

import (
	"encoding/json"
	"time"

	"blackjack-engine/internal/core/domain"

	"github.com/google/uuid"
)

// CreateRoundRequest is the request body for opening a round.
type CreateRoundRequest struct {
	BetAmount  int64         `json:"bet_amount" binding:"required,gt=0"`
	ClientSeed string        `json:"client_seed" binding:"omitempty,max=64,client_seed"`
	Table      *TableRequest `json:"table,omitempty"`
}

// TableRequest overrides the house rules for a single round.
type TableRequest struct {
	DeckCount             int   `json:"deck_count" binding:"required,min=1,max=8"`
	BlackjackPayoutNum    int64 `json:"blackjack_payout_num" binding:"required,gt=0"`
	BlackjackPayoutDen    int64 `json:"blackjack_payout_den" binding:"required,gt=0"`
	DealerHitsSoft17      bool  `json:"dealer_hits_soft17"`
	AllowSplit            bool  `json:"allow_split"`
	MaxHands              int   `json:"max_hands" binding:"required,min=1,max=8"`
	AllowDoubleAfterSplit bool  `json:"allow_double_after_split"`
	AllowSurrender        bool  `json:"allow_surrender"`
	MinBet                int64 `json:"min_bet" binding:"required,gt=0"`
	MaxBet                int64 `json:"max_bet" binding:"required,gtefield=MinBet"`
}

// ToDomain converts the override to a domain rule set.
func (t *TableRequest) ToDomain() *domain.TableConfig {
	if t == nil {
		return nil
	}
	return &domain.TableConfig{
		DeckCount:             t.DeckCount,
		BlackjackPayoutNum:    t.BlackjackPayoutNum,
		BlackjackPayoutDen:    t.BlackjackPayoutDen,
		DealerHitsSoft17:      t.DealerHitsSoft17,
		AllowSplit:            t.AllowSplit,
		MaxHands:              t.MaxHands,
		AllowDoubleAfterSplit: t.AllowDoubleAfterSplit,
		AllowSurrender:        t.AllowSurrender,
		MinBet:                t.MinBet,
		MaxBet:                t.MaxBet,
	}
}

// ActionRequest is the request body for a player action.
type ActionRequest struct {
	Kind   string `json:"kind" binding:"required,action_kind"`
	Amount int64  `json:"amount" binding:"gte=0"`
	Hand   *int   `json:"hand,omitempty" binding:"omitempty,gte=0"`
}

// ToDomain converts the request to a domain action.
func (r ActionRequest) ToDomain() domain.Action {
	return domain.Action{
		Kind:   domain.ActionKind(r.Kind),
		Amount: r.Amount,
		Hand:   r.Hand,
	}
}

// WalletBalanceResponse is the response for balance query.
type WalletBalanceResponse struct {
	Balance   int64 `json:"balance"`
	Locked    int64 `json:"locked"`
	Available int64 `json:"available"`
}

// AuditEntryResponse is one entry of a round's audit trail.
type AuditEntryResponse struct {
	Seq       int64           `json:"seq"`
	Kind      string          `json:"kind"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
	CreatedAt string          `json:"created_at"`
}

// AuditTrailResponse wraps a round's audit trail.
type AuditTrailResponse struct {
	RoundID uuid.UUID            `json:"round_id"`
	Entries []AuditEntryResponse `json:"entries"`
}

// NewAuditTrailResponse converts stored entries for the client.
func NewAuditTrailResponse(roundID uuid.UUID, entries []domain.AuditEntry) AuditTrailResponse {
	resp := AuditTrailResponse{RoundID: roundID, Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, AuditEntryResponse{
			Seq:       e.Seq,
			Kind:      string(e.Kind),
			Actor:     string(e.Actor),
			Payload:   e.Payload,
			PrevHash:  e.PrevHash,
			Hash:      e.Hash,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return resp
}
