package service

import (
	"blackjack-engine/internal/core/domain"
	"blackjack-engine/internal/core/ports"
	"blackjack-engine/internal/game"
)

// NewRoundView projects a round for its player. The shoe is never exposed,
// the hole card stays hidden until the dealer reveals it and the server seed
// only appears once the round is settled.
func NewRoundView(r *domain.Round) *ports.RoundView {
	v := &ports.RoundView{
		ID:             r.ID,
		Status:         r.Status,
		BetAmount:      r.BetAmount,
		InsuranceBet:   r.InsuranceBet,
		LockedAmount:   r.LockedAmount,
		PlayerHands:    make([]ports.HandView, 0, len(r.State.PlayerHands)),
		ActiveHand:     r.State.ActiveHand,
		DealerHidden:   r.State.DealerHoleHidden,
		Insurance:      r.State.Insurance,
		LegalActions:   []domain.ActionKind{},
		Summary:        r.Summary,
		ServerSeedHash: r.Fairness.ServerSeedHash,
		PublicHash:     r.Fairness.PublicHash,
		ClientSeed:     r.Fairness.ClientSeed,
		Nonce:          r.Fairness.Nonce,
		Table:          r.Table,
		CreatedAt:      r.CreatedAt,
		LastActionAt:   r.LastActionAt,
		SettledAt:      r.SettledAt,
		Version:        r.Version,
	}

	for _, h := range r.State.PlayerHands {
		total, soft := h.Total()
		v.PlayerHands = append(v.PlayerHands, ports.HandView{
			Cards:     append([]domain.Card(nil), h.Cards...),
			Total:     total,
			Soft:      soft,
			Wager:     h.Wager,
			Status:    h.Status,
			Doubled:   h.Doubled,
			FromSplit: h.FromSplit,
		})
	}

	dealer := r.State.DealerHand.Cards
	if r.State.DealerHoleHidden && len(dealer) > 1 {
		dealer = dealer[:1]
	}
	v.DealerCards = append([]domain.Card(nil), dealer...)
	v.DealerTotal = domain.Hand{Cards: v.DealerCards}.Score()

	if r.Status == domain.RoundStatusPlayerTurn {
		if legal := game.LegalActions(r); legal != nil {
			v.LegalActions = legal
		}
	}
	if r.Status == domain.RoundStatusSettled {
		v.ServerSeed = r.Fairness.ServerSeed
	}
	return v
}
