package postgres

import (
	"context"
	"testing"
	"time"

	"blackjack-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerEntryColumns() []string {
	return []string{"id", "user_id", "kind", "reservation_id", "round_id", "amount", "released", "balance_after", "created_at"}
}

func TestLedgerEntryRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerEntryRepo(mock)
	resID, roundID := uuid.New(), uuid.New()
	e := &domain.LedgerEntry{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Kind:          domain.LedgerEntrySettlement,
		ReservationID: &resID,
		RoundID:       &roundID,
		Amount:        750,
		Released:      500,
		BalanceAfter:  10_750,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(e.ID, e.UserID, "SETTLEMENT", e.ReservationID, e.RoundID,
			e.Amount, e.Released, e.BalanceAfter, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, tx, e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerEntryRepo_GetByReservation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerEntryRepo(mock)
	id, userID, resID, roundID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE reservation_id").
		WithArgs(resID).
		WillReturnRows(pgxmock.NewRows(ledgerEntryColumns()).
			AddRow(id, userID, "SETTLEMENT", &resID, &roundID, int64(-1000), int64(1000), int64(4000), now))

	e, err := repo.GetByReservation(context.Background(), resID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, domain.LedgerEntrySettlement, e.Kind)
	assert.Equal(t, int64(-1000), e.Amount)
	require.NotNil(t, e.ReservationID)
	assert.Equal(t, resID, *e.ReservationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerEntryRepo_GetByReservation_NotSettled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerEntryRepo(mock)
	resID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM ledger_entries").
		WithArgs(resID).
		WillReturnRows(pgxmock.NewRows(ledgerEntryColumns()))

	e, err := repo.GetByReservation(context.Background(), resID)
	assert.NoError(t, err)
	assert.Nil(t, e)
}
