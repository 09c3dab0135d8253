package domain

import (
	"fmt"
	"strings"
)

// Suit represents a card suit.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Suits lists the suits in canonical shoe order.
var Suits = [...]Suit{Spades, Hearts, Diamonds, Clubs}

// String returns the one-letter code of the suit.
func (s Suit) String() string {
	switch s {
	case Spades:
		return "S"
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	case Clubs:
		return "C"
	default:
		return "?"
	}
}

// Rank represents a card rank. Ace is low in canonical order; its blackjack
// value is decided by the hand total.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

const rankCodes = "A23456789TJQK"

// String returns the one-character code of the rank.
func (r Rank) String() string {
	if r < Ace || r > King {
		return "?"
	}
	return string(rankCodes[r-1])
}

// Card is a single playing card.
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card.
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the two-character code, rank then suit (e.g. "AS", "TD").
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Value is the blackjack point value with aces counted as 1.
func (c Card) Value() int {
	if c.Rank >= Ten {
		return 10
	}
	return int(c.Rank)
}

// IsAce returns true if the card is an ace.
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsTenValue returns true for tens and face cards.
func (c Card) IsTenValue() bool {
	return c.Rank >= Ten
}

// MarshalText encodes the card as its two-character code.
func (c Card) MarshalText() ([]byte, error) {
	if c.Rank < Ace || c.Rank > King || c.Suit < Spades || c.Suit > Clubs {
		return nil, fmt.Errorf("invalid card rank=%d suit=%d", c.Rank, c.Suit)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a two-character card code.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a two-character card code such as "QH".
func ParseCard(code string) (Card, error) {
	if len(code) != 2 {
		return Card{}, fmt.Errorf("invalid card code %q", code)
	}
	r := strings.IndexByte(rankCodes, code[0])
	if r < 0 {
		return Card{}, fmt.Errorf("invalid rank in card code %q", code)
	}
	var suit Suit
	switch code[1] {
	case 'S':
		suit = Spades
	case 'H':
		suit = Hearts
	case 'D':
		suit = Diamonds
	case 'C':
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid suit in card code %q", code)
	}
	return Card{Rank: Rank(r + 1), Suit: suit}, nil
}

// ParseCards parses a whitespace or comma separated list of card codes.
func ParseCards(s string) ([]Card, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// CanonicalDeck returns deckCount standard decks in canonical order:
// suits S,H,D,C and ranks A..K within each suit.
func CanonicalDeck(deckCount int) []Card {
	cards := make([]Card, 0, 52*deckCount)
	for d := 0; d < deckCount; d++ {
		for _, suit := range Suits {
			for rank := Ace; rank <= King; rank++ {
				cards = append(cards, NewCard(rank, suit))
			}
		}
	}
	return cards
}

// EncodeCards joins card codes with commas.
func EncodeCards(cards []Card) string {
	var b strings.Builder
	b.Grow(len(cards) * 3)
	for i, c := range cards {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.String())
	}
	return b.String()
}
