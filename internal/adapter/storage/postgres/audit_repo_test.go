package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"blackjack-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditColumns() []string {
	return []string{"id", "round_id", "seq", "kind", "actor", "payload", "prev_hash", "hash", "created_at"}
}

func TestAuditRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	e := &domain.AuditEntry{
		ID:        uuid.New(),
		RoundID:   uuid.New(),
		Seq:       1,
		Kind:      domain.AuditRoundCreated,
		Actor:     domain.ActorSystem,
		Payload:   json.RawMessage(`{"bet":100}`),
		PrevHash:  domain.AuditGenesisHash,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	e.Hash = e.ComputeHash()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_entries").
		WithArgs(e.ID, e.RoundID, e.Seq, "ROUND_CREATED", "SYSTEM",
			`{"bet":100}`, "0", e.Hash, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, tx, e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_ListByRound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	roundID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM audit_entries WHERE round_id = .+ ORDER BY seq").
		WithArgs(roundID).
		WillReturnRows(pgxmock.NewRows(auditColumns()).
			AddRow(uuid.New(), roundID, int64(1), "ROUND_CREATED", "SYSTEM", `{"bet":100}`, "0", "h1", now).
			AddRow(uuid.New(), roundID, int64(2), "ACTION_APPLIED", "PLAYER", `{"kind":"STAND"}`, "h1", "h2", now))

	entries, err := repo.ListByRound(context.Background(), roundID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditActionApplied, entries[1].Kind)
	assert.Equal(t, domain.ActorPlayer, entries[1].Actor)
	assert.JSONEq(t, `{"kind":"STAND"}`, string(entries[1].Payload))
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}
