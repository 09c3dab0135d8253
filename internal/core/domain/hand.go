package domain

// Hand is an ordered set of cards.
type Hand struct {
	Cards []Card `json:"cards"`
}

// Add appends a card to the hand.
func (h *Hand) Add(c Card) {
	h.Cards = append(h.Cards, c)
}

// Total returns the best blackjack total and whether it is soft
// (an ace is counted as 11).
func (h Hand) Total() (total int, soft bool) {
	aces := 0
	for _, c := range h.Cards {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}
	if aces > 0 && total+10 <= 21 {
		return total + 10, true
	}
	return total, false
}

// Score returns the best total.
func (h Hand) Score() int {
	t, _ := h.Total()
	return t
}

// IsBust reports a total over 21.
func (h Hand) IsBust() bool {
	return h.Score() > 21
}

// IsNatural reports a two-card 21.
func (h Hand) IsNatural() bool {
	return len(h.Cards) == 2 && h.Score() == 21
}

// IsPair reports two cards of identical rank.
func (h Hand) IsPair() bool {
	return len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank
}

func (h Hand) clone() Hand {
	return Hand{Cards: append([]Card(nil), h.Cards...)}
}
