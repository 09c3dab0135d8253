package service

import (
	"context"
	"encoding/json"
	"fmt"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/internal/core/ports"
	"blackjack-engine/pkg/apperror"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type auditService struct {
	repo  ports.AuditRepository
	clock quartz.Clock
	log   zerolog.Logger
}

// NewAuditService creates a new audit service. Entries are written in the
// caller's transaction so they commit or roll back with the round.
func NewAuditService(repo ports.AuditRepository, clock quartz.Clock, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, clock: clock, log: log}
}

// Append chains an entry onto the round's audit head.
func (s *auditService) Append(
	ctx context.Context,
	tx pgx.Tx,
	round *domain.Round,
	kind domain.AuditKind,
	actor domain.Actor,
	payload any,
) (*domain.AuditEntry, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode audit payload: %w", err)
	}

	prev := round.AuditHead
	if prev == "" {
		prev = domain.AuditGenesisHash
	}

	entry := &domain.AuditEntry{
		ID:        uuid.New(),
		RoundID:   round.ID,
		Seq:       round.AuditSeq + 1,
		Kind:      kind,
		Actor:     actor,
		Payload:   raw,
		PrevHash:  prev,
		CreatedAt: s.clock.Now().UTC(),
	}
	entry.Hash = entry.ComputeHash()

	if err := s.repo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	round.AuditSeq = entry.Seq
	round.AuditHead = entry.Hash

	s.log.Info().
		Str("round_id", round.ID.String()).
		Int64("seq", entry.Seq).
		Str("kind", string(kind)).
		Str("actor", string(actor)).
		Str("hash", entry.Hash).
		Msg("audit")

	return entry, nil
}

// List returns the round's entries in sequence order.
func (s *auditService) List(ctx context.Context, roundID uuid.UUID) ([]domain.AuditEntry, error) {
	entries, err := s.repo.ListByRound(ctx, roundID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list audit entries: %w", err))
	}
	return entries, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(p)
	}
}
