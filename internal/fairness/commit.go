// Package fairness implements the commit-reveal scheme and the keyed shuffle
// that make every shoe reproducible by the player after settlement.
package fairness

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// SeedBytes is the amount of entropy drawn for a server seed.
const SeedBytes = 32

// Commitment is a freshly drawn server seed and its published hash.
type Commitment struct {
	ServerSeed     string
	ServerSeedHash string
}

// Commit draws a server seed from entropy and commits to it.
func Commit(entropy io.Reader) (Commitment, error) {
	seed, err := randomHex(entropy, SeedBytes)
	if err != nil {
		return Commitment{}, fmt.Errorf("draw server seed: %w", err)
	}
	return Commitment{ServerSeed: seed, ServerSeedHash: HashSeed(seed)}, nil
}

// NewClientSeed draws a client seed for players that did not supply one.
func NewClientSeed(entropy io.Reader) (string, error) {
	seed, err := randomHex(entropy, 16)
	if err != nil {
		return "", fmt.Errorf("draw client seed: %w", err)
	}
	return seed, nil
}

// HashSeed returns hex(SHA-256(serverSeed)).
func HashSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment checks a revealed seed against its commitment.
func VerifyCommitment(serverSeed, serverSeedHash string) bool {
	got := HashSeed(serverSeed)
	return subtle.ConstantTimeCompare([]byte(got), []byte(serverSeedHash)) == 1
}

// PublicHash binds the seed commitment, client seed, nonce and the exact shoe:
// hex(SHA-256("serverSeedHash:clientSeed:nonce:shoeHash")).
func PublicHash(serverSeedHash, clientSeed string, nonce uint64, shoeHash string) string {
	msg := serverSeedHash + ":" + clientSeed + ":" + strconv.FormatUint(nonce, 10) + ":" + shoeHash
	sum := sha256.Sum256([]byte(msg))
	return hex.EncodeToString(sum[:])
}

func randomHex(entropy io.Reader, n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(entropy, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
