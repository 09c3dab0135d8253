package service

import (
	"context"
	"fmt"
	"time"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/internal/core/ports"
	"blackjack-engine/pkg/apperror"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.Ledger on top of row-locked wallets.
// Funds move between balance and locked only inside a DB transaction that
// holds the reservation row (if any) and then the wallet row.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	resRepo    ports.ReservationRepository
	entryRepo  ports.LedgerEntryRepository
	cache      ports.SettlementCache
	transactor ports.DBTransactor
	clock      quartz.Clock
	cacheTTL   time.Duration
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	resRepo ports.ReservationRepository,
	entryRepo ports.LedgerEntryRepository,
	cache ports.SettlementCache,
	transactor ports.DBTransactor,
	clock quartz.Clock,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		resRepo:    resRepo,
		entryRepo:  entryRepo,
		cache:      cache,
		transactor: transactor,
		clock:      clock,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// Lock moves amount from available to locked funds and opens a reservation
// for the round.
func (s *LedgerServiceImpl) Lock(ctx context.Context, userID, roundID uuid.UUID, amount int64) (*domain.Reservation, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidBet("lock amount must be positive")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet.Available() < amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.UpdateBalances(ctx, dbTx, userID, wallet.Balance, wallet.Locked+amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}

	res := &domain.Reservation{
		ID:        uuid.New(),
		UserID:    userID,
		RoundID:   roundID,
		Amount:    amount,
		Status:    domain.ReservationOpen,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.resRepo.Create(ctx, dbTx, res); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create reservation: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("reservation_id", res.ID.String()).
		Str("user_id", userID.String()).
		Str("round_id", roundID.String()).
		Int64("amount", amount).
		Msg("funds locked")

	return res, nil
}

// Extend grows an open reservation to total. A total at or below the current
// amount is a no-op, so retrying after a failed round save is safe.
func (s *LedgerServiceImpl) Extend(ctx context.Context, reservationID uuid.UUID, total int64) (*domain.Reservation, error) {
	return s.resize(ctx, reservationID, total, false)
}

// Adjust sets an open reservation to exactly total. The round engine calls it
// to hand back an extension whose round save failed.
func (s *LedgerServiceImpl) Adjust(ctx context.Context, reservationID uuid.UUID, total int64) (*domain.Reservation, error) {
	if total <= 0 {
		return nil, apperror.ErrInvalidBet("reservation total must be positive")
	}
	return s.resize(ctx, reservationID, total, true)
}

func (s *LedgerServiceImpl) resize(ctx context.Context, reservationID uuid.UUID, total int64, shrink bool) (*domain.Reservation, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	res, err := s.resRepo.GetForUpdate(ctx, dbTx, reservationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock reservation: %w", err))
	}
	if res == nil {
		return nil, apperror.ErrReservationNotFound()
	}
	if !res.IsOpen() {
		return nil, apperror.ErrReservationClosed()
	}
	delta := total - res.Amount
	if delta == 0 || (delta < 0 && !shrink) {
		return res, nil
	}

	wallet, err := s.walletRepo.GetForUpdate(ctx, dbTx, res.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if delta > 0 && wallet.Available() < delta {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.UpdateBalances(ctx, dbTx, res.UserID, wallet.Balance, wallet.Locked+delta); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}
	if err := s.resRepo.UpdateAmount(ctx, dbTx, res.ID, total); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update reservation: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	res.Amount = total

	s.log.Info().
		Str("reservation_id", res.ID.String()).
		Int64("delta", delta).
		Int64("total", total).
		Msg("reservation resized")

	return res, nil
}

// Settle releases the reservation and applies netDelta to the balance.
// Settling an already settled reservation returns the stored entry.
func (s *LedgerServiceImpl) Settle(ctx context.Context, reservationID uuid.UUID, netDelta int64) (*domain.LedgerEntry, error) {
	// Layer 1: Redis settlement check
	cached, err := s.cache.Get(ctx, reservationID)
	if err != nil {
		s.log.Warn().Err(err).Str("reservation_id", reservationID.String()).Msg("redis settlement check failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}

	// Layer 2: DB settlement check
	existing, err := s.entryRepo.GetByReservation(ctx, reservationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db settlement check: %w", err))
	}
	if existing != nil {
		s.cacheEntry(ctx, existing)
		return existing, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	res, err := s.resRepo.GetForUpdate(ctx, dbTx, reservationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock reservation: %w", err))
	}
	if res == nil {
		return nil, apperror.ErrReservationNotFound()
	}
	if !res.IsOpen() {
		// Settled by a concurrent caller between the checks and the row lock.
		existing, err := s.entryRepo.GetByReservation(ctx, reservationID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db settlement check: %w", err))
		}
		if existing == nil {
			return nil, apperror.ErrReservationClosed()
		}
		return existing, nil
	}
	if netDelta < -res.Amount {
		return nil, apperror.InternalError(fmt.Errorf("net loss %d exceeds reservation %d", -netDelta, res.Amount))
	}

	wallet, err := s.walletRepo.GetForUpdate(ctx, dbTx, res.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}

	newBalance := wallet.Balance + netDelta
	newLocked := wallet.Locked - res.Amount
	if newLocked < 0 {
		return nil, apperror.InternalError(fmt.Errorf("wallet %s locked %d below reservation %d", res.UserID, wallet.Locked, res.Amount))
	}

	if err := s.walletRepo.UpdateBalances(ctx, dbTx, res.UserID, newBalance, newLocked); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}

	now := s.clock.Now().UTC()
	if err := s.resRepo.MarkSettled(ctx, dbTx, res.ID, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark reservation settled: %w", err))
	}

	resID, roundID := res.ID, res.RoundID
	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		UserID:        res.UserID,
		Kind:          domain.LedgerEntrySettlement,
		ReservationID: &resID,
		RoundID:       &roundID,
		Amount:        netDelta,
		Released:      res.Amount,
		BalanceAfter:  newBalance,
		CreatedAt:     now,
	}
	if err := s.entryRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache in Redis (best-effort)
	s.cacheEntry(ctx, entry)

	s.log.Info().
		Str("reservation_id", res.ID.String()).
		Str("round_id", res.RoundID.String()).
		Int64("released", res.Amount).
		Int64("net", netDelta).
		Int64("balance_after", newBalance).
		Msg("reservation settled")

	return entry, nil
}

// Release returns the reserved funds untouched.
func (s *LedgerServiceImpl) Release(ctx context.Context, reservationID uuid.UUID) (*domain.LedgerEntry, error) {
	return s.Settle(ctx, reservationID, 0)
}

// Balance returns the wallet view. A user without a wallet has zero funds.
func (s *LedgerServiceImpl) Balance(ctx context.Context, userID uuid.UUID) (*domain.WalletBalance, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return &domain.WalletBalance{UserID: userID}, nil
	}
	view := wallet.View()
	return &view, nil
}

// Deposit credits an external top-up.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.WalletBalance, error) {
	if amount <= 0 {
		return nil, apperror.Validation("deposit amount must be positive")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	wallet.Balance += amount

	if err := s.walletRepo.UpdateBalances(ctx, dbTx, userID, wallet.Balance, wallet.Locked); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}

	entry := &domain.LedgerEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         domain.LedgerEntryDeposit,
		Amount:       amount,
		BalanceAfter: wallet.Balance,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.entryRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	view := wallet.View()
	return &view, nil
}

func (s *LedgerServiceImpl) cacheEntry(ctx context.Context, entry *domain.LedgerEntry) {
	if err := s.cache.Set(ctx, entry, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("entry_id", entry.ID.String()).Msg("failed to cache settlement in redis")
	}
}
