package fairness

import (
	"errors"
	"fmt"

	"blackjack-engine/internal/core/domain"
)

var (
	ErrCommitmentMismatch = errors.New("server seed does not match its hash")
	ErrShoeMismatch       = errors.New("rebuilt shoe does not match shoe hash")
	ErrPublicHashMismatch = errors.New("public hash does not match revealed values")
)

// Reveal is everything a player needs to re-derive a settled round's shoe.
type Reveal struct {
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
	DeckCount      int    `json:"deck_count"`
	ShoeHash       string `json:"shoe_hash"`
	PublicHash     string `json:"public_hash"`
}

// Verify checks the seed against its commitment, rebuilds the shoe and checks
// it against the shoe hash and public hash. PublicHash is optional.
func Verify(r Reveal) ([]domain.Card, error) {
	if !VerifyCommitment(r.ServerSeed, r.ServerSeedHash) {
		return nil, ErrCommitmentMismatch
	}
	shoe, err := BuildShoe(r.ServerSeed, r.ClientSeed, r.Nonce, r.DeckCount)
	if err != nil {
		return nil, fmt.Errorf("rebuild shoe: %w", err)
	}
	if ShoeHash(shoe) != r.ShoeHash {
		return nil, ErrShoeMismatch
	}
	if r.PublicHash != "" && PublicHash(r.ServerSeedHash, r.ClientSeed, r.Nonce, r.ShoeHash) != r.PublicHash {
		return nil, ErrPublicHashMismatch
	}
	return shoe, nil
}
