package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// AuditKind represents the type of audited round event.
type AuditKind string

const (
	AuditRoundCreated   AuditKind = "ROUND_CREATED"
	AuditActionApplied  AuditKind = "ACTION_APPLIED"
	AuditActionRejected AuditKind = "ACTION_REJECTED"
	AuditFundsExtended  AuditKind = "FUNDS_EXTENDED"
	AuditRoundCompleted AuditKind = "ROUND_COMPLETED"
	AuditRoundSettled   AuditKind = "ROUND_SETTLED"
	AuditSeedRevealed   AuditKind = "SEED_REVEALED"
)

// AuditGenesisHash is the previous hash of the first entry in every chain.
const AuditGenesisHash = "0"

// AuditEntry is one immutable, hash-chained record of a round transition.
type AuditEntry struct {
	ID        uuid.UUID       `json:"id"`
	RoundID   uuid.UUID       `json:"round_id"`
	Seq       int64           `json:"seq"`
	Kind      AuditKind       `json:"kind"`
	Actor     Actor           `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
	CreatedAt time.Time       `json:"created_at"`
}

// ComputeHash derives the chain hash from the previous hash and the entry content.
func (e *AuditEntry) ComputeHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(e.Seq, 10)))
	h.Write([]byte{0})
	h.Write([]byte(e.Kind))
	h.Write([]byte{0})
	h.Write([]byte(e.Actor))
	h.Write([]byte{0})
	h.Write(e.Payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyAuditChain checks that entries form one unbroken chain from genesis:
// sequence numbers start at 1 without gaps, every PrevHash links to the
// previous entry and every Hash matches the entry content.
func VerifyAuditChain(entries []AuditEntry) error {
	prev := AuditGenesisHash
	for i := range entries {
		e := &entries[i]
		if want := int64(i + 1); e.Seq != want {
			return fmt.Errorf("audit entry %d: sequence %d, want %d", i, e.Seq, want)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("audit entry %d: broken link to previous entry", e.Seq)
		}
		if e.ComputeHash() != e.Hash {
			return fmt.Errorf("audit entry %d: content does not match hash", e.Seq)
		}
		prev = e.Hash
	}
	return nil
}
