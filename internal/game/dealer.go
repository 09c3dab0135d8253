package game

import (
	"fmt"
	"time"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/pkg/apperror"
)

// peek checks the hole card for a dealer blackjack. A dealer natural ends the
// round before any player decision.
func peek(r *domain.Round, at time.Time) error {
	r.State.DealerPeeked = true
	record(r, domain.ActorSystem, domain.ActionPeek, r.State.ActiveHand, 0, nil, at)

	if r.State.DealerHand.IsNatural() {
		r.State.DealerHoleHidden = false
		for i := range r.State.PlayerHands {
			if h := &r.State.PlayerHands[i]; !h.Resolved() {
				h.Status = domain.HandStatusStood
			}
		}
		return complete(r, at)
	}
	return continueOrPlayDealer(r, at)
}

// needsDealerDraw reports whether any hand still competes against the
// dealer total.
func needsDealerDraw(r *domain.Round) bool {
	for _, h := range r.State.PlayerHands {
		if h.Status == domain.HandStatusStood && !h.IsBlackjack() {
			return true
		}
	}
	return false
}

// playDealer reveals the hole card and draws to 17, hitting soft 17 when the
// table says so.
func playDealer(r *domain.Round, at time.Time) error {
	if r.Status == domain.RoundStatusPlayerTurn {
		if err := r.Advance(domain.RoundStatusDealerTurn); err != nil {
			return err
		}
	}
	r.State.DealerHoleHidden = false

	if needsDealerDraw(r) {
		for {
			total, soft := r.State.DealerHand.Total()
			if total > 17 || (total == 17 && !(soft && r.Table.DealerHitsSoft17)) {
				break
			}
			c, err := r.Draw()
			if err != nil {
				return err
			}
			r.State.DealerHand.Add(c)
			record(r, domain.ActorSystem, domain.ActionDealerDraw, r.State.ActiveHand, 0, &c, at)
		}
	}
	return complete(r, at)
}

// complete computes the summary exactly once and moves to COMPLETED.
func complete(r *domain.Round, at time.Time) error {
	if r.Summary != nil {
		return nil
	}
	if err := r.Advance(domain.RoundStatusCompleted); err != nil {
		return err
	}
	r.State.DealerHoleHidden = false
	r.Summary = Settle(r)
	record(r, domain.ActorSystem, domain.ActionComplete, r.State.ActiveHand, r.Summary.TotalNet, nil, at)
	return nil
}

// MarkSettled closes a completed round once its funds have been settled.
func MarkSettled(r *domain.Round, at time.Time) error {
	if r.Status != domain.RoundStatusCompleted || r.Summary == nil {
		return apperror.ErrInvalidTransition(fmt.Sprintf("cannot settle a %s round", r.Status))
	}
	if err := r.Advance(domain.RoundStatusSettled); err != nil {
		return err
	}
	r.SettledAt = &at
	r.LastActionAt = at
	record(r, domain.ActorSystem, domain.ActionSettle, r.State.ActiveHand, r.Summary.TotalNet, nil, at)
	return nil
}
