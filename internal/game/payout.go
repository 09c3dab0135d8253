package game

import (
	"blackjack-engine/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Settle computes the per-hand outcomes and net payouts of a finished round.
// Fractional payouts are truncated to the minor unit.
func Settle(r *domain.Round) *domain.Summary {
	dealer := r.State.DealerHand
	dealerTotal := dealer.Score()
	dealerBJ := dealer.IsNatural()
	dealerBust := dealerTotal > 21

	s := &domain.Summary{
		Hands:           make([]domain.HandResult, 0, len(r.State.PlayerHands)),
		DealerTotal:     dealerTotal,
		DealerBlackjack: dealerBJ,
		InsuranceBet:    r.InsuranceBet,
	}

	for i, h := range r.State.PlayerHands {
		res := domain.HandResult{Index: i, Wager: h.Wager, Total: h.Score()}
		w := decimal.NewFromInt(h.Wager)
		total := h.Score()

		switch {
		case h.Status == domain.HandStatusSurrendered:
			res.Outcome = domain.OutcomeSurrender
			res.Net = -w.Div(decimal.NewFromInt(2)).Ceil().IntPart()
		case h.Status == domain.HandStatusBust:
			res.Outcome = domain.OutcomeBust
			res.Net = -h.Wager
		case h.IsBlackjack() && dealerBJ:
			res.Outcome = domain.OutcomePush
		case h.IsBlackjack():
			res.Outcome = domain.OutcomeBlackjack
			res.Net = BlackjackPayout(h.Wager, r.Table)
		case dealerBJ:
			res.Outcome = domain.OutcomeLose
			res.Net = -h.Wager
		case dealerBust || total > dealerTotal:
			res.Outcome = domain.OutcomeWin
			res.Net = h.Wager
		case total == dealerTotal:
			res.Outcome = domain.OutcomePush
		default:
			res.Outcome = domain.OutcomeLose
			res.Net = -h.Wager
		}
		s.Hands = append(s.Hands, res)
		s.TotalNet += res.Net
	}

	if r.InsuranceBet > 0 {
		if dealerBJ {
			s.InsuranceNet = decimal.NewFromInt(r.InsuranceBet).Mul(decimal.NewFromInt(2)).IntPart()
		} else {
			s.InsuranceNet = -r.InsuranceBet
		}
		s.TotalNet += s.InsuranceNet
	}
	return s
}

// BlackjackPayout is the net win of a natural, wager * num / den truncated.
func BlackjackPayout(wager int64, t domain.TableConfig) int64 {
	return decimal.NewFromInt(wager).
		Mul(decimal.NewFromInt(t.BlackjackPayoutNum)).
		Div(decimal.NewFromInt(t.BlackjackPayoutDen)).
		Truncate(0).
		IntPart()
}
