package fairness

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"

	"blackjack-engine/internal/core/domain"
)

// MaxDecks bounds the shoe size.
const MaxDecks = 8

// keyStream is an HMAC-SHA256 keyed byte stream. Block i is
// HMAC(key=serverSeed, msg="clientSeed:nonce:i").
type keyStream struct {
	mac        hash.Hash
	clientSeed string
	nonce      uint64
	counter    uint64
	buf        []byte
}

func newKeyStream(serverSeed, clientSeed string, nonce uint64) *keyStream {
	return &keyStream{
		mac:        hmac.New(sha256.New, []byte(serverSeed)),
		clientSeed: clientSeed,
		nonce:      nonce,
	}
}

func (s *keyStream) refill() {
	s.mac.Reset()
	fmt.Fprintf(s.mac, "%s:%d:%d", s.clientSeed, s.nonce, s.counter)
	s.buf = s.mac.Sum(s.buf[:0])
	s.counter++
}

func (s *keyStream) uint32() uint32 {
	if len(s.buf) < 4 {
		s.refill()
	}
	v := binary.BigEndian.Uint32(s.buf[:4])
	s.buf = s.buf[4:]
	return v
}

// intn returns a uniform value in [0, n) by rejection sampling.
func (s *keyStream) intn(n uint32) uint32 {
	const space = uint64(1) << 32
	limit := space - space%uint64(n)
	for {
		v := uint64(s.uint32())
		if v < limit {
			return uint32(v % uint64(n))
		}
	}
}

// BuildShoe shuffles deckCount canonical decks with a Fisher-Yates pass driven
// by the keyed stream. Identical inputs always give the identical shoe.
func BuildShoe(serverSeed, clientSeed string, nonce uint64, deckCount int) ([]domain.Card, error) {
	if serverSeed == "" {
		return nil, errors.New("server seed is required")
	}
	if deckCount < 1 || deckCount > MaxDecks {
		return nil, fmt.Errorf("deck count must be between 1 and %d, got %d", MaxDecks, deckCount)
	}

	shoe := domain.CanonicalDeck(deckCount)
	stream := newKeyStream(serverSeed, clientSeed, nonce)
	for i := len(shoe) - 1; i > 0; i-- {
		j := stream.intn(uint32(i + 1))
		shoe[i], shoe[j] = shoe[j], shoe[i]
	}
	return shoe, nil
}

// ShoeHash returns hex(SHA-256) of the comma-joined card codes.
func ShoeHash(shoe []domain.Card) string {
	sum := sha256.Sum256([]byte(domain.EncodeCards(shoe)))
	return hex.EncodeToString(sum[:])
}
