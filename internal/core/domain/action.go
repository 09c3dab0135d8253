package domain

import (
	"time"
)

// ActionKind is the closed set of round actions.
type ActionKind string

// Player actions.
const (
	ActionHit              ActionKind = "HIT"
	ActionStand            ActionKind = "STAND"
	ActionDouble           ActionKind = "DOUBLE"
	ActionSplit            ActionKind = "SPLIT"
	ActionInsurance        ActionKind = "INSURANCE"
	ActionDeclineInsurance ActionKind = "DECLINE_INSURANCE"
	ActionSurrender        ActionKind = "SURRENDER"
)

// System actions.
const (
	ActionDeal       ActionKind = "DEAL"
	ActionPeek       ActionKind = "PEEK"
	ActionDealerDraw ActionKind = "DEALER_DRAW"
	ActionForceStand ActionKind = "FORCE_STAND"
	ActionComplete   ActionKind = "COMPLETE"
	ActionSettle     ActionKind = "SETTLE"
)

var playerActions = map[ActionKind]bool{
	ActionHit:              true,
	ActionStand:            true,
	ActionDouble:           true,
	ActionSplit:            true,
	ActionInsurance:        true,
	ActionDeclineInsurance: true,
	ActionSurrender:        true,
}

// IsPlayerAction reports whether a client may submit this action.
func (k ActionKind) IsPlayerAction() bool {
	return playerActions[k]
}

// Actor identifies who issued an action.
type Actor string

const (
	ActorPlayer Actor = "PLAYER"
	ActorSystem Actor = "SYSTEM"
)

// Action is a command against a round.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int64      `json:"amount,omitempty"` // insurance stake
	Hand   *int       `json:"hand,omitempty"`   // target hand, defaults to the active one
}

// ActionRecord is one append-only history entry.
type ActionRecord struct {
	Seq       int        `json:"seq"`
	Actor     Actor      `json:"actor"`
	Kind      ActionKind `json:"kind"`
	HandIndex int        `json:"hand_index"`
	Amount    int64      `json:"amount,omitempty"`
	Card      *Card      `json:"card,omitempty"`
	StateHash string     `json:"state_hash"`
	Rejected  bool       `json:"rejected,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	At        time.Time  `json:"at"`
}
