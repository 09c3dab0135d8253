// Package game is the blackjack state machine. It is pure: every function
// works on a *domain.Round in memory and never performs I/O, so callers can
// apply an action to a clone and persist it only if everything else succeeds.
package game

import (
	"fmt"
	"time"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/pkg/apperror"
)

// Deal performs the opening deal on a freshly created round: player, dealer
// up-card, player, dealer hole card. Insurance is offered on an ace, a
// ten-value up-card is peeked at once, and naturals finish the round.
func Deal(r *domain.Round, at time.Time) error {
	if r.Status != domain.RoundStatusPlayerTurn || len(r.State.PlayerHands) > 0 {
		return apperror.ErrInvalidTransition("round has already been dealt")
	}

	var cards [4]domain.Card
	for i := range cards {
		c, err := r.Draw()
		if err != nil {
			return fmt.Errorf("opening deal: %w", err)
		}
		cards[i] = c
	}

	hand := domain.PlayerHand{
		Hand:   domain.Hand{Cards: []domain.Card{cards[0], cards[2]}},
		Wager:  r.BetAmount,
		Status: domain.HandStatusActive,
	}
	if hand.IsBlackjack() {
		hand.Status = domain.HandStatusStood
	}
	r.State.PlayerHands = []domain.PlayerHand{hand}
	r.State.DealerHand = domain.Hand{Cards: []domain.Card{cards[1], cards[3]}}
	r.State.DealerHoleHidden = true
	r.State.ActiveHand = 0
	r.State.Insurance = domain.InsuranceNone
	r.LastActionAt = at
	record(r, domain.ActorSystem, domain.ActionDeal, 0, 0, nil, at)

	up := cards[1]
	switch {
	case up.IsAce():
		r.State.Insurance = domain.InsuranceOffered
		return nil
	case up.IsTenValue():
		return peek(r, at)
	}
	return continueOrPlayDealer(r, at)
}

// Check validates a player action against the round and returns the extra
// funds the action needs locked (double, split, insurance). It never mutates.
func Check(r *domain.Round, a domain.Action) (int64, error) {
	if r.Status.IsFinished() {
		return 0, apperror.ErrInvalidTransition(fmt.Sprintf("round is %s", r.Status))
	}
	if !a.Kind.IsPlayerAction() {
		return 0, apperror.ErrIllegalAction(fmt.Sprintf("%s is not a player action", a.Kind))
	}

	switch a.Kind {
	case domain.ActionInsurance, domain.ActionDeclineInsurance:
		return checkInsurance(r, a)
	}

	idx, hand, err := targetHand(r, a)
	if err != nil {
		return 0, err
	}
	if r.Status != domain.RoundStatusPlayerTurn {
		return 0, apperror.ErrIllegalAction("it is not the player's turn")
	}
	if r.State.Insurance == domain.InsuranceOffered {
		return 0, apperror.ErrIllegalAction("insurance must be taken or declined first")
	}

	switch a.Kind {
	case domain.ActionHit, domain.ActionStand:
		return 0, nil

	case domain.ActionDouble:
		if hand.Actions > 0 || len(hand.Cards) != 2 {
			return 0, apperror.ErrIllegalAction("double is only allowed as the first action on two cards")
		}
		if hand.FromSplit && !r.Table.AllowDoubleAfterSplit {
			return 0, apperror.ErrIllegalAction("double after split is not allowed at this table")
		}
		return hand.Wager, nil

	case domain.ActionSplit:
		if !r.Table.AllowSplit {
			return 0, apperror.ErrIllegalAction("split is not allowed at this table")
		}
		if hand.Actions > 0 || !hand.IsPair() {
			return 0, apperror.ErrIllegalAction("split requires an untouched pair")
		}
		if len(r.State.PlayerHands) >= r.Table.MaxHands {
			return 0, apperror.ErrIllegalAction(fmt.Sprintf("at most %d hands per round", r.Table.MaxHands))
		}
		return hand.Wager, nil

	case domain.ActionSurrender:
		if !r.Table.AllowSurrender {
			return 0, apperror.ErrIllegalAction("surrender is not allowed at this table")
		}
		if idx != 0 || len(r.State.PlayerHands) != 1 || hand.Actions > 0 {
			return 0, apperror.ErrIllegalAction("surrender is only allowed as the first action on an unsplit hand")
		}
		return 0, nil
	}
	return 0, apperror.ErrIllegalAction(fmt.Sprintf("unknown action %s", a.Kind))
}

func checkInsurance(r *domain.Round, a domain.Action) (int64, error) {
	if r.Status != domain.RoundStatusPlayerTurn || r.State.Insurance != domain.InsuranceOffered {
		return 0, apperror.ErrIllegalAction("insurance is not on offer")
	}
	if a.Kind == domain.ActionDeclineInsurance {
		return 0, nil
	}
	maxStake := r.BetAmount / 2
	if a.Amount <= 0 || a.Amount > maxStake {
		return 0, apperror.ErrIllegalAction(fmt.Sprintf("insurance must be between 1 and %d", maxStake))
	}
	return a.Amount, nil
}

// targetHand resolves the hand an action applies to. An explicit index must
// name the active hand; a resolved hand is always rejected.
func targetHand(r *domain.Round, a domain.Action) (int, *domain.PlayerHand, error) {
	idx := r.State.ActiveHand
	if a.Hand != nil {
		idx = *a.Hand
	}
	if idx < 0 || idx >= len(r.State.PlayerHands) {
		return 0, nil, apperror.ErrIllegalAction(fmt.Sprintf("no hand %d", idx))
	}
	hand := &r.State.PlayerHands[idx]
	if hand.Resolved() {
		return 0, nil, apperror.ErrIllegalAction(fmt.Sprintf("hand %d is already %s", idx, hand.Status))
	}
	if idx != r.State.ActiveHand {
		return 0, nil, apperror.ErrIllegalAction(fmt.Sprintf("hand %d is not the active hand", idx))
	}
	return idx, hand, nil
}

// Apply validates and applies a player action. On error r must be discarded,
// so callers pass a clone.
func Apply(r *domain.Round, a domain.Action, at time.Time) error {
	extra, err := Check(r, a)
	if err != nil {
		return err
	}
	r.LastActionAt = at

	switch a.Kind {
	case domain.ActionInsurance:
		r.InsuranceBet = a.Amount
		r.LockedAmount += extra
		r.State.Insurance = domain.InsuranceTaken
		record(r, domain.ActorPlayer, a.Kind, r.State.ActiveHand, a.Amount, nil, at)
		return peek(r, at)

	case domain.ActionDeclineInsurance:
		r.State.Insurance = domain.InsuranceDeclined
		record(r, domain.ActorPlayer, a.Kind, r.State.ActiveHand, 0, nil, at)
		return peek(r, at)
	}

	idx := r.State.ActiveHand
	hand := &r.State.PlayerHands[idx]
	hand.Actions++

	switch a.Kind {
	case domain.ActionHit:
		c, err := r.Draw()
		if err != nil {
			return err
		}
		hand.Add(c)
		switch {
		case hand.IsBust():
			hand.Status = domain.HandStatusBust
		case hand.Score() == 21:
			hand.Status = domain.HandStatusStood
		}
		record(r, domain.ActorPlayer, a.Kind, idx, 0, &c, at)

	case domain.ActionStand:
		hand.Status = domain.HandStatusStood
		record(r, domain.ActorPlayer, a.Kind, idx, 0, nil, at)

	case domain.ActionDouble:
		c, err := r.Draw()
		if err != nil {
			return err
		}
		hand.Wager += extra
		hand.Doubled = true
		r.LockedAmount += extra
		hand.Add(c)
		hand.Status = domain.HandStatusStood
		if hand.IsBust() {
			hand.Status = domain.HandStatusBust
		}
		record(r, domain.ActorPlayer, a.Kind, idx, extra, &c, at)

	case domain.ActionSplit:
		if err := split(r, idx, extra, at); err != nil {
			return err
		}

	case domain.ActionSurrender:
		hand.Status = domain.HandStatusSurrendered
		record(r, domain.ActorPlayer, a.Kind, idx, 0, nil, at)
	}

	return continueOrPlayDealer(r, at)
}

func split(r *domain.Round, idx int, wager int64, at time.Time) error {
	orig := r.State.PlayerHands[idx]
	aces := orig.Cards[0].IsAce()

	first := domain.PlayerHand{Hand: domain.Hand{Cards: []domain.Card{orig.Cards[0]}}, Wager: orig.Wager, Status: domain.HandStatusActive, FromSplit: true}
	second := domain.PlayerHand{Hand: domain.Hand{Cards: []domain.Card{orig.Cards[1]}}, Wager: wager, Status: domain.HandStatusActive, FromSplit: true}

	hands := make([]domain.PlayerHand, 0, len(r.State.PlayerHands)+1)
	hands = append(hands, r.State.PlayerHands[:idx]...)
	hands = append(hands, first, second)
	hands = append(hands, r.State.PlayerHands[idx+1:]...)
	r.State.PlayerHands = hands
	r.LockedAmount += wager
	record(r, domain.ActorPlayer, domain.ActionSplit, idx, wager, nil, at)

	for i := idx; i <= idx+1; i++ {
		c, err := r.Draw()
		if err != nil {
			return err
		}
		h := &r.State.PlayerHands[i]
		h.Add(c)
		// Split aces take one card each.
		if aces || h.Score() == 21 {
			h.Status = domain.HandStatusStood
		}
		record(r, domain.ActorSystem, domain.ActionDeal, i, 0, &c, at)
	}
	return nil
}

// continueOrPlayDealer moves to the next unresolved hand or, if none remain,
// hands over to the dealer.
func continueOrPlayDealer(r *domain.Round, at time.Time) error {
	for i := r.State.ActiveHand; i < len(r.State.PlayerHands); i++ {
		if !r.State.PlayerHands[i].Resolved() {
			r.State.ActiveHand = i
			return nil
		}
	}
	return playDealer(r, at)
}

// ForceStand resolves every open decision so an abandoned or force-settled
// round can run to completion. Pending insurance is declined.
func ForceStand(r *domain.Round, at time.Time) error {
	switch r.Status {
	case domain.RoundStatusSettled:
		return apperror.ErrInvalidTransition("round is settled")
	case domain.RoundStatusCompleted:
		return nil
	case domain.RoundStatusDealerTurn:
		return playDealer(r, at)
	}

	if r.State.Insurance == domain.InsuranceOffered {
		r.State.Insurance = domain.InsuranceDeclined
		record(r, domain.ActorSystem, domain.ActionForceStand, r.State.ActiveHand, 0, nil, at)
		if err := peek(r, at); err != nil {
			return err
		}
		if r.Status != domain.RoundStatusPlayerTurn {
			return nil
		}
	}

	for i := range r.State.PlayerHands {
		h := &r.State.PlayerHands[i]
		if h.Resolved() {
			continue
		}
		h.Status = domain.HandStatusStood
		record(r, domain.ActorSystem, domain.ActionForceStand, i, 0, nil, at)
	}
	return playDealer(r, at)
}

// Reject appends a refused action to history without touching state.
func Reject(r *domain.Round, a domain.Action, reason string, at time.Time) {
	idx := r.State.ActiveHand
	if a.Hand != nil {
		idx = *a.Hand
	}
	r.History = append(r.History, domain.ActionRecord{
		Seq:       len(r.History) + 1,
		Actor:     domain.ActorPlayer,
		Kind:      a.Kind,
		HandIndex: idx,
		Amount:    a.Amount,
		StateHash: r.StateHash(),
		Rejected:  true,
		Reason:    reason,
		At:        at,
	})
}

// LegalActions lists the player actions currently accepted.
func LegalActions(r *domain.Round) []domain.ActionKind {
	kinds := []domain.ActionKind{
		domain.ActionHit, domain.ActionStand, domain.ActionDouble, domain.ActionSplit,
		domain.ActionInsurance, domain.ActionDeclineInsurance, domain.ActionSurrender,
	}
	var legal []domain.ActionKind
	for _, k := range kinds {
		a := domain.Action{Kind: k}
		if k == domain.ActionInsurance {
			a.Amount = r.BetAmount / 2
		}
		if _, err := Check(r, a); err == nil {
			legal = append(legal, k)
		}
	}
	return legal
}

func record(r *domain.Round, actor domain.Actor, kind domain.ActionKind, hand int, amount int64, card *domain.Card, at time.Time) {
	r.History = append(r.History, domain.ActionRecord{
		Seq:       len(r.History) + 1,
		Actor:     actor,
		Kind:      kind,
		HandIndex: hand,
		Amount:    amount,
		Card:      card,
		StateHash: r.StateHash(),
		At:        at,
	})
}
