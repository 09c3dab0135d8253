package fairness

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"blackjack-engine/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommit_HashMatchesSeed(t *testing.T) {
	c, err := Commit(rand.Reader)
	require.NoError(t, err)

	assert.Len(t, c.ServerSeed, 2*SeedBytes)
	assert.Equal(t, HashSeed(c.ServerSeed), c.ServerSeedHash)
	assert.True(t, VerifyCommitment(c.ServerSeed, c.ServerSeedHash))
	assert.False(t, VerifyCommitment(c.ServerSeed+"0", c.ServerSeedHash))
}

func TestCommit_DistinctSeeds(t *testing.T) {
	a, err := Commit(rand.Reader)
	require.NoError(t, err)
	b, err := Commit(rand.Reader)
	require.NoError(t, err)
	assert.NotEqual(t, a.ServerSeed, b.ServerSeed)
}

func TestCommit_ShortEntropy(t *testing.T) {
	_, err := Commit(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestHashSeed_KnownVector(t *testing.T) {
	assert.Equal(t, "91024ec49c5bec0b689e42892526320fce08337205c91de94c7a588c20d08eeb", HashSeed("server-seed"))
}

func TestBuildShoe_KnownVector(t *testing.T) {
	shoe, err := BuildShoe("server-seed", "client-seed", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, "5H,TD,AS,QS,2H,QC,3H,9C", domain.EncodeCards(shoe[:8]))
	assert.Equal(t, "c3f5bf3fe3a46b8fc1b9badccdc5bf0fe009ae907ac85a010cf76b2b11199692", ShoeHash(shoe))

	six, err := BuildShoe("server-seed", "client-seed", 1, 6)
	require.NoError(t, err)
	assert.Equal(t, "4H,KS,AD,9H", domain.EncodeCards(six[:4]))
	assert.Equal(t, "3efe5821d1a359d0050c1d10e4229b308408fc66cdbc61083aa7f4f6f3055098", ShoeHash(six))
}

func TestBuildShoe_Deterministic(t *testing.T) {
	a, err := BuildShoe("seed-a", "client", 42, 6)
	require.NoError(t, err)
	b, err := BuildShoe("seed-a", "client", 42, 6)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, ShoeHash(a), ShoeHash(b))
}

func TestBuildShoe_InputsChangeShoe(t *testing.T) {
	base, err := BuildShoe("seed-a", "client", 42, 6)
	require.NoError(t, err)

	otherNonce, err := BuildShoe("seed-a", "client", 43, 6)
	require.NoError(t, err)
	otherClient, err := BuildShoe("seed-a", "client2", 42, 6)
	require.NoError(t, err)
	otherServer, err := BuildShoe("seed-b", "client", 42, 6)
	require.NoError(t, err)

	assert.NotEqual(t, ShoeHash(base), ShoeHash(otherNonce))
	assert.NotEqual(t, ShoeHash(base), ShoeHash(otherClient))
	assert.NotEqual(t, ShoeHash(base), ShoeHash(otherServer))
}

func TestBuildShoe_IsPermutation(t *testing.T) {
	for _, decks := range []int{1, 2, 6, 8} {
		shoe, err := BuildShoe("perm", "client", 7, decks)
		require.NoError(t, err)
		require.Len(t, shoe, 52*decks)

		counts := map[domain.Card]int{}
		for _, c := range shoe {
			counts[c]++
		}
		assert.Len(t, counts, 52)
		for c, n := range counts {
			assert.Equal(t, decks, n, "card %s", c)
		}
	}
}

func TestBuildShoe_InvalidInput(t *testing.T) {
	_, err := BuildShoe("", "client", 1, 6)
	assert.Error(t, err)
	_, err = BuildShoe("seed", "client", 1, 0)
	assert.Error(t, err)
	_, err = BuildShoe("seed", "client", 1, MaxDecks+1)
	assert.Error(t, err)
}

func TestKeyStream_IntnInRange(t *testing.T) {
	s := newKeyStream("seed", "client", 1)
	for _, n := range []uint32{1, 2, 3, 52, 311, 416} {
		for i := 0; i < 200; i++ {
			assert.Less(t, s.intn(n), n)
		}
	}
}

func TestPublicHash_BindsEveryInput(t *testing.T) {
	base := PublicHash("h", "c", 1, "s")
	assert.Len(t, base, 64)
	assert.NotEqual(t, base, PublicHash("h2", "c", 1, "s"))
	assert.NotEqual(t, base, PublicHash("h", "c2", 1, "s"))
	assert.NotEqual(t, base, PublicHash("h", "c", 2, "s"))
	assert.NotEqual(t, base, PublicHash("h", "c", 1, "s2"))
}

func validReveal(t *testing.T) Reveal {
	t.Helper()
	c, err := Commit(rand.Reader)
	require.NoError(t, err)
	shoe, err := BuildShoe(c.ServerSeed, "player-seed", 9, 2)
	require.NoError(t, err)
	shoeHash := ShoeHash(shoe)
	return Reveal{
		ServerSeed:     c.ServerSeed,
		ServerSeedHash: c.ServerSeedHash,
		ClientSeed:     "player-seed",
		Nonce:          9,
		DeckCount:      2,
		ShoeHash:       shoeHash,
		PublicHash:     PublicHash(c.ServerSeedHash, "player-seed", 9, shoeHash),
	}
}

func TestVerify(t *testing.T) {
	t.Run("valid reveal", func(t *testing.T) {
		shoe, err := Verify(validReveal(t))
		require.NoError(t, err)
		assert.Len(t, shoe, 104)
	})

	t.Run("tampered seed", func(t *testing.T) {
		r := validReveal(t)
		r.ServerSeed += "x"
		_, err := Verify(r)
		assert.True(t, errors.Is(err, ErrCommitmentMismatch))
	})

	t.Run("tampered shoe hash", func(t *testing.T) {
		r := validReveal(t)
		r.Nonce++
		_, err := Verify(r)
		assert.True(t, errors.Is(err, ErrShoeMismatch))
	})

	t.Run("tampered public hash", func(t *testing.T) {
		r := validReveal(t)
		r.PublicHash = HashSeed("something else")
		_, err := Verify(r)
		assert.True(t, errors.Is(err, ErrPublicHashMismatch))
	})

	t.Run("public hash optional", func(t *testing.T) {
		r := validReveal(t)
		r.PublicHash = ""
		_, err := Verify(r)
		assert.NoError(t, err)
	})
}
