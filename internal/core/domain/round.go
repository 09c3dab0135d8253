package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoundStatus represents the lifecycle state of a round.
type RoundStatus string

const (
	RoundStatusPlayerTurn RoundStatus = "PLAYER_TURN"
	RoundStatusDealerTurn RoundStatus = "DEALER_TURN"
	RoundStatusCompleted  RoundStatus = "COMPLETED"
	RoundStatusSettled    RoundStatus = "SETTLED"
)

var statusOrder = map[RoundStatus]int{
	RoundStatusPlayerTurn: 1,
	RoundStatusDealerTurn: 2,
	RoundStatusCompleted:  3,
	RoundStatusSettled:    4,
}

// CanAdvanceTo reports whether moving from s to next goes strictly forward.
// Skipping states is allowed, e.g. a natural moves PLAYER_TURN to COMPLETED.
func (s RoundStatus) CanAdvanceTo(next RoundStatus) bool {
	from, ok := statusOrder[s]
	to, ok2 := statusOrder[next]
	return ok && ok2 && to > from
}

// IsFinished reports whether play is over (COMPLETED or SETTLED).
func (s RoundStatus) IsFinished() bool {
	return s == RoundStatusCompleted || s == RoundStatusSettled
}

// HandStatus tracks a single player hand.
type HandStatus string

const (
	HandStatusActive      HandStatus = "ACTIVE"
	HandStatusStood       HandStatus = "STOOD"
	HandStatusBust        HandStatus = "BUST"
	HandStatusSurrendered HandStatus = "SURRENDERED"
)

// PlayerHand is a hand with its own wager. Splitting creates more of them.
type PlayerHand struct {
	Hand
	Wager     int64      `json:"wager"`
	Status    HandStatus `json:"status"`
	Doubled   bool       `json:"doubled,omitempty"`
	FromSplit bool       `json:"from_split,omitempty"`
	Actions   int        `json:"actions"` // player decisions taken on this hand
}

// IsBlackjack is a natural on an unsplit hand.
func (p PlayerHand) IsBlackjack() bool {
	return !p.FromSplit && p.IsNatural()
}

// Resolved reports the hand takes no more player actions.
func (p PlayerHand) Resolved() bool {
	return p.Status != HandStatusActive
}

// InsuranceState tracks the insurance side bet.
type InsuranceState string

const (
	InsuranceNone     InsuranceState = "NONE" // dealer up-card is not an ace
	InsuranceOffered  InsuranceState = "OFFERED"
	InsuranceTaken    InsuranceState = "TAKEN"
	InsuranceDeclined InsuranceState = "DECLINED"
)

// PlayState is the mutable table state of a round.
type PlayState struct {
	PlayerHands      []PlayerHand   `json:"player_hands"`
	DealerHand       Hand           `json:"dealer_hand"`
	DealerHoleHidden bool           `json:"dealer_hole_hidden"`
	DealerPeeked     bool           `json:"dealer_peeked"`
	ActiveHand       int            `json:"active_hand"`
	Cursor           int            `json:"cursor"`
	Insurance        InsuranceState `json:"insurance"`
}

// DealerUpCard returns the first dealer card.
func (s PlayState) DealerUpCard() (Card, bool) {
	if len(s.DealerHand.Cards) == 0 {
		return Card{}, false
	}
	return s.DealerHand.Cards[0], true
}

// TableConfig is the house rule set a round is played under.
type TableConfig struct {
	DeckCount             int   `json:"deck_count"`
	BlackjackPayoutNum    int64 `json:"blackjack_payout_num"`
	BlackjackPayoutDen    int64 `json:"blackjack_payout_den"`
	DealerHitsSoft17      bool  `json:"dealer_hits_soft17"`
	AllowSplit            bool  `json:"allow_split"`
	MaxHands              int   `json:"max_hands"`
	AllowDoubleAfterSplit bool  `json:"allow_double_after_split"`
	AllowSurrender        bool  `json:"allow_surrender"`
	MinBet                int64 `json:"min_bet"`
	MaxBet                int64 `json:"max_bet"`
}

// DefaultTableConfig returns standard house rules: six decks, dealer stands on
// soft 17, blackjack pays 3:2.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		DeckCount:             6,
		BlackjackPayoutNum:    3,
		BlackjackPayoutDen:    2,
		AllowSplit:            true,
		MaxHands:              4,
		AllowDoubleAfterSplit: true,
		MinBet:                1,
		MaxBet:                1_000_000,
	}
}

// Validate checks the rule set is playable.
func (t TableConfig) Validate() error {
	switch {
	case t.DeckCount < 1 || t.DeckCount > 8:
		return fmt.Errorf("deck_count must be between 1 and 8, got %d", t.DeckCount)
	case t.BlackjackPayoutNum <= 0 || t.BlackjackPayoutDen <= 0:
		return errors.New("blackjack payout must be a positive ratio")
	case t.MaxHands < 1:
		return errors.New("max_hands must be at least 1")
	case t.MinBet <= 0:
		return errors.New("min_bet must be positive")
	case t.MaxBet < t.MinBet:
		return errors.New("max_bet must not be below min_bet")
	}
	return nil
}

// ProvablyFair holds the commit-reveal material for a round.
type ProvablyFair struct {
	ServerSeed       string `json:"server_seed,omitempty"` // empty until SETTLED
	ServerSeedSealed string `json:"-"`
	ServerSeedHash   string `json:"server_seed_hash"`
	PublicHash       string `json:"public_hash"`
	ClientSeed       string `json:"client_seed"`
	Nonce            uint64 `json:"nonce"`
	ShoeHash         string `json:"shoe_hash"`
}

// Outcome of a settled hand.
type Outcome string

const (
	OutcomeBlackjack Outcome = "BLACKJACK"
	OutcomeWin       Outcome = "WIN"
	OutcomePush      Outcome = "PUSH"
	OutcomeLose      Outcome = "LOSE"
	OutcomeBust      Outcome = "BUST"
	OutcomeSurrender Outcome = "SURRENDER"
)

// HandResult is the settlement of one player hand.
type HandResult struct {
	Index   int     `json:"index"`
	Outcome Outcome `json:"outcome"`
	Wager   int64   `json:"wager"`
	Net     int64   `json:"net"`
	Total   int     `json:"total"`
}

// Summary is computed exactly once, when the round completes.
type Summary struct {
	Hands           []HandResult `json:"hands"`
	DealerTotal     int          `json:"dealer_total"`
	DealerBlackjack bool         `json:"dealer_blackjack"`
	InsuranceBet    int64        `json:"insurance_bet"`
	InsuranceNet    int64        `json:"insurance_net"`
	TotalNet        int64        `json:"total_net"`
}

// Round is the aggregate persisted by the RoundStore.
type Round struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	Status        RoundStatus    `json:"status"`
	BetAmount     int64          `json:"bet_amount"`
	InsuranceBet  int64          `json:"insurance_bet"`
	LockedAmount  int64          `json:"locked_amount"`
	ReservationID uuid.UUID      `json:"reservation_id"`
	Fairness      ProvablyFair   `json:"fairness"`
	Shoe          []Card         `json:"-"`
	State         PlayState      `json:"state"`
	History       []ActionRecord `json:"history"`
	Summary       *Summary       `json:"summary,omitempty"`
	Table         TableConfig    `json:"table"`
	AuditSeq      int64          `json:"-"`
	AuditHead     string         `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	LastActionAt  time.Time      `json:"last_action_at"`
	SettledAt     *time.Time     `json:"settled_at,omitempty"`
	Version       int64          `json:"version"`
}

// TotalWagered sums every hand wager plus insurance. While the round is
// open LockedAmount must equal it.
func (r *Round) TotalWagered() int64 {
	total := r.InsuranceBet
	for _, h := range r.State.PlayerHands {
		total += h.Wager
	}
	return total
}

// ActivePlayerHand returns the hand awaiting a decision, or nil.
func (r *Round) ActivePlayerHand() *PlayerHand {
	if r.State.ActiveHand < 0 || r.State.ActiveHand >= len(r.State.PlayerHands) {
		return nil
	}
	return &r.State.PlayerHands[r.State.ActiveHand]
}

// ErrShoeExhausted is returned when a draw runs past the end of the shoe.
var ErrShoeExhausted = errors.New("shoe exhausted")

// Draw takes the next card at the cursor.
func (r *Round) Draw() (Card, error) {
	if r.State.Cursor >= len(r.Shoe) {
		return Card{}, ErrShoeExhausted
	}
	c := r.Shoe[r.State.Cursor]
	r.State.Cursor++
	return c, nil
}

// Advance moves the round to next, refusing backward or unknown transitions.
func (r *Round) Advance(next RoundStatus) error {
	if !r.Status.CanAdvanceTo(next) {
		return fmt.Errorf("cannot move round from %s to %s", r.Status, next)
	}
	r.Status = next
	return nil
}

// StateHash fingerprints the fields an action can change. The state holds
// the hole card before it is revealed, so the digest is an HMAC keyed with
// the encoded shoe: the player cannot test candidate cards against it, and
// anyone holding the revealed shoe can recompute it.
func (r *Round) StateHash() string {
	payload, _ := json.Marshal(struct {
		Status       RoundStatus `json:"status"`
		State        PlayState   `json:"state"`
		InsuranceBet int64       `json:"insurance_bet"`
		LockedAmount int64       `json:"locked_amount"`
	}{r.Status, r.State, r.InsuranceBet, r.LockedAmount})
	mac := hmac.New(sha256.New, []byte(EncodeCards(r.Shoe)))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Clone returns a deep copy. The shoe is shared since it never changes.
func (r *Round) Clone() *Round {
	c := *r
	c.State.PlayerHands = make([]PlayerHand, len(r.State.PlayerHands))
	for i, h := range r.State.PlayerHands {
		h.Hand = h.Hand.clone()
		c.State.PlayerHands[i] = h
	}
	c.State.DealerHand = r.State.DealerHand.clone()
	c.History = append([]ActionRecord(nil), r.History...)
	if r.Summary != nil {
		s := *r.Summary
		s.Hands = append([]HandResult(nil), r.Summary.Hands...)
		c.Summary = &s
	}
	if r.SettledAt != nil {
		t := *r.SettledAt
		c.SettledAt = &t
	}
	return &c
}
