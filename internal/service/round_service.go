package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/internal/core/ports"
	"blackjack-engine/internal/fairness"
	"blackjack-engine/internal/game"
	"blackjack-engine/pkg/apperror"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	maxClientSeedLen = 64
	commitAttempts   = 3
)

// RoundServiceConfig holds the engine settings of a RoundServiceImpl.
type RoundServiceConfig struct {
	ServerID      string
	Table         domain.TableConfig
	LockTTL       time.Duration
	CommitmentTTL time.Duration
	Entropy       io.Reader // crypto/rand.Reader when nil
}

// RoundServiceImpl implements ports.RoundService. Each command loads the
// round, runs the pure state machine on a clone, moves funds through the
// ledger and persists the clone with its audit entries in one transaction.
type RoundServiceImpl struct {
	store       ports.RoundStore
	ledger      ports.Ledger
	audit       ports.AuditService
	transactor  ports.DBTransactor
	locker      ports.RoundLocker
	nonces      ports.NonceStore
	commitments ports.CommitmentRegistry
	sealer      ports.EncryptionService
	cfg         RoundServiceConfig
	clock       quartz.Clock
	log         zerolog.Logger
}

// NewRoundService creates a new RoundServiceImpl.
func NewRoundService(
	store ports.RoundStore,
	ledger ports.Ledger,
	audit ports.AuditService,
	transactor ports.DBTransactor,
	locker ports.RoundLocker,
	nonces ports.NonceStore,
	commitments ports.CommitmentRegistry,
	sealer ports.EncryptionService,
	cfg RoundServiceConfig,
	clock quartz.Clock,
	log zerolog.Logger,
) *RoundServiceImpl {
	if cfg.Entropy == nil {
		cfg.Entropy = rand.Reader
	}
	return &RoundServiceImpl{
		store:       store,
		ledger:      ledger,
		audit:       audit,
		transactor:  transactor,
		locker:      locker,
		nonces:      nonces,
		commitments: commitments,
		sealer:      sealer,
		cfg:         cfg,
		clock:       clock,
		log:         log,
	}
}

// CreateRound commits to a server seed, locks the bet and deals. A round
// dealt straight to COMPLETED (naturals, dealer peek) is settled at once.
func (s *RoundServiceImpl) CreateRound(ctx context.Context, req ports.CreateRoundRequest) (*ports.CreateRoundResult, error) {
	table := s.cfg.Table
	if req.Table != nil {
		table = *req.Table
		if err := table.Validate(); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}
	if req.BetAmount < table.MinBet || req.BetAmount > table.MaxBet {
		return nil, apperror.ErrInvalidBet(fmt.Sprintf("bet must be between %d and %d", table.MinBet, table.MaxBet))
	}

	clientSeed := req.ClientSeed
	if clientSeed == "" {
		var err error
		if clientSeed, err = fairness.NewClientSeed(s.cfg.Entropy); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("draw client seed: %w", err))
		}
	} else if err := validateClientSeed(clientSeed); err != nil {
		return nil, err
	}

	commitment, err := s.commit(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := s.nonces.Next(ctx, s.cfg.ServerID, clientSeed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("allocate nonce: %w", err))
	}

	shoe, err := fairness.BuildShoe(commitment.ServerSeed, clientSeed, nonce, table.DeckCount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build shoe: %w", err))
	}
	shoeHash := fairness.ShoeHash(shoe)

	sealed, err := s.sealer.Encrypt(commitment.ServerSeed)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("seal server seed: %w", err))
	}

	roundID := uuid.New()
	res, err := s.ledger.Lock(ctx, req.UserID, roundID, req.BetAmount)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	round := &domain.Round{
		ID:            roundID,
		UserID:        req.UserID,
		Status:        domain.RoundStatusPlayerTurn,
		BetAmount:     req.BetAmount,
		LockedAmount:  req.BetAmount,
		ReservationID: res.ID,
		Fairness: domain.ProvablyFair{
			ServerSeedSealed: sealed,
			ServerSeedHash:   commitment.ServerSeedHash,
			PublicHash:       fairness.PublicHash(commitment.ServerSeedHash, clientSeed, nonce, shoeHash),
			ClientSeed:       clientSeed,
			Nonce:            nonce,
			ShoeHash:         shoeHash,
		},
		Shoe:         shoe,
		Table:        table,
		CreatedAt:    now,
		LastActionAt: now,
	}

	if err := game.Deal(round, now); err != nil {
		s.release(ctx, res.ID)
		return nil, apperror.InternalError(fmt.Errorf("opening deal: %w", err))
	}

	err = s.persist(ctx, round, 0, func(tx pgx.Tx) error {
		if _, err := s.audit.Append(ctx, tx, round, domain.AuditRoundCreated, domain.ActorSystem, roundCreatedPayload{
			UserID:         round.UserID,
			BetAmount:      round.BetAmount,
			ReservationID:  round.ReservationID,
			ServerSeedHash: round.Fairness.ServerSeedHash,
			PublicHash:     round.Fairness.PublicHash,
			ClientSeed:     round.Fairness.ClientSeed,
			Nonce:          round.Fairness.Nonce,
			ShoeHash:       round.Fairness.ShoeHash,
			Table:          round.Table,
			Records:        round.History,
		}); err != nil {
			return err
		}
		return s.appendCompleted(ctx, tx, round, 0)
	})
	if err != nil {
		s.release(ctx, res.ID)
		return nil, err
	}

	s.log.Info().
		Str("round_id", round.ID.String()).
		Str("user_id", round.UserID.String()).
		Int64("bet", round.BetAmount).
		Uint64("nonce", round.Fairness.Nonce).
		Str("status", string(round.Status)).
		Msg("round created")

	if round.Status == domain.RoundStatusCompleted {
		round = s.settleCompleted(ctx, round)
	}

	return &ports.CreateRoundResult{
		RoundID:        round.ID,
		ServerSeedHash: round.Fairness.ServerSeedHash,
		PublicHash:     round.Fairness.PublicHash,
		Round:          NewRoundView(round),
	}, nil
}

// ApplyAction runs one player action. Refused actions are recorded in the
// round history and audit trail and the refusal is returned.
func (s *RoundServiceImpl) ApplyAction(ctx context.Context, req ports.ActionRequest) (*ports.RoundView, error) {
	unlock, err := s.lock(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	round, err := s.load(ctx, req.RoundID, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	next := round.Clone()
	if err := game.Apply(next, req.Action, now); err != nil {
		return nil, s.reject(ctx, round, req.Action, err, now)
	}

	extra := next.LockedAmount - round.LockedAmount
	if extra > 0 {
		if _, err := s.ledger.Extend(ctx, round.ReservationID, next.LockedAmount); err != nil {
			if apperror.HasCode(err, apperror.CodeInsufficientFunds) {
				return nil, s.reject(ctx, round, req.Action, err, now)
			}
			return nil, err
		}
	}

	err = s.persist(ctx, next, round.Version, func(tx pgx.Tx) error {
		if _, err := s.audit.Append(ctx, tx, next, domain.AuditActionApplied, domain.ActorPlayer, actionPayload{
			Kind:      req.Action.Kind,
			Hand:      req.Action.Hand,
			Amount:    req.Action.Amount,
			Status:    next.Status,
			StateHash: next.StateHash(),
			Records:   next.History[len(round.History):],
		}); err != nil {
			return err
		}
		if extra > 0 {
			if _, err := s.audit.Append(ctx, tx, next, domain.AuditFundsExtended, domain.ActorSystem, fundsPayload{
				ReservationID: next.ReservationID,
				Extra:         extra,
				LockedAmount:  next.LockedAmount,
			}); err != nil {
				return err
			}
		}
		return s.appendCompleted(ctx, tx, next, len(round.History))
	})
	if err != nil {
		if extra > 0 {
			s.shrinkReservation(ctx, round)
		}
		return nil, err
	}

	if next.Status == domain.RoundStatusCompleted {
		next = s.settleCompleted(ctx, next)
	}
	return NewRoundView(next), nil
}

// shrinkReservation returns the reservation to the stored round's locked
// amount after an extension whose round save failed.
func (s *RoundServiceImpl) shrinkReservation(ctx context.Context, round *domain.Round) {
	if _, err := s.ledger.Adjust(context.WithoutCancel(ctx), round.ReservationID, round.LockedAmount); err != nil {
		s.log.Error().Err(err).
			Str("round_id", round.ID.String()).
			Str("reservation_id", round.ReservationID.String()).
			Int64("locked_amount", round.LockedAmount).
			Msg("failed to shrink reservation after round save failed")
	}
}

// ForceSettle stands every open hand, plays the dealer and settles.
// Settling a settled round returns it unchanged.
func (s *RoundServiceImpl) ForceSettle(ctx context.Context, roundID, userID uuid.UUID) (*ports.RoundView, error) {
	unlock, err := s.lock(ctx, roundID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	round, err := s.load(ctx, roundID, userID)
	if err != nil {
		return nil, err
	}

	switch round.Status {
	case domain.RoundStatusSettled:
		return NewRoundView(round), nil

	case domain.RoundStatusPlayerTurn, domain.RoundStatusDealerTurn:
		actor := domain.ActorPlayer
		if userID == uuid.Nil {
			actor = domain.ActorSystem
		}

		next := round.Clone()
		if err := game.ForceStand(next, s.clock.Now().UTC()); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("force stand: %w", err))
		}
		err := s.persist(ctx, next, round.Version, func(tx pgx.Tx) error {
			if _, err := s.audit.Append(ctx, tx, next, domain.AuditActionApplied, actor, actionPayload{
				Kind:      domain.ActionForceStand,
				Status:    next.Status,
				StateHash: next.StateHash(),
				Records:   next.History[len(round.History):],
			}); err != nil {
				return err
			}
			return s.appendCompleted(ctx, tx, next, len(round.History))
		})
		if err != nil {
			return nil, err
		}
		round = next
	}

	settled, err := s.finalize(ctx, round)
	if err != nil {
		return nil, err
	}
	return NewRoundView(settled), nil
}

// GetRound returns the player's view of a round.
func (s *RoundServiceImpl) GetRound(ctx context.Context, roundID, userID uuid.UUID) (*ports.RoundView, error) {
	round, err := s.load(ctx, roundID, userID)
	if err != nil {
		return nil, err
	}
	return NewRoundView(round), nil
}

// Reveal returns everything needed to re-derive the shoe. Only settled
// rounds reveal their server seed.
func (s *RoundServiceImpl) Reveal(ctx context.Context, roundID, userID uuid.UUID) (*fairness.Reveal, error) {
	round, err := s.load(ctx, roundID, userID)
	if err != nil {
		return nil, err
	}
	if round.Status != domain.RoundStatusSettled {
		return nil, apperror.ErrSeedNotYetRevealable()
	}
	return &fairness.Reveal{
		ServerSeed:     round.Fairness.ServerSeed,
		ServerSeedHash: round.Fairness.ServerSeedHash,
		ClientSeed:     round.Fairness.ClientSeed,
		Nonce:          round.Fairness.Nonce,
		DeckCount:      round.Table.DeckCount,
		ShoeHash:       round.Fairness.ShoeHash,
		PublicHash:     round.Fairness.PublicHash,
	}, nil
}

// AuditTrail returns the round's audit entries in order.
func (s *RoundServiceImpl) AuditTrail(ctx context.Context, roundID, userID uuid.UUID) ([]domain.AuditEntry, error) {
	if _, err := s.load(ctx, roundID, userID); err != nil {
		return nil, err
	}
	return s.audit.List(ctx, roundID)
}

// finalize settles a COMPLETED round with the ledger, reveals the seed and
// persists it as SETTLED. Every step is idempotent, so a failed attempt is
// retried by the next caller or by the sweeper.
func (s *RoundServiceImpl) finalize(ctx context.Context, round *domain.Round) (*domain.Round, error) {
	if round.Status == domain.RoundStatusSettled {
		return round, nil
	}
	if round.Status != domain.RoundStatusCompleted || round.Summary == nil {
		return nil, apperror.ErrInvalidTransition(fmt.Sprintf("cannot settle a %s round", round.Status))
	}

	entry, err := s.ledger.Settle(ctx, round.ReservationID, round.Summary.TotalNet)
	if err != nil {
		return nil, err
	}

	seed, err := s.sealer.Decrypt(round.Fairness.ServerSeedSealed)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("unseal server seed: %w", err))
	}
	if !fairness.VerifyCommitment(seed, round.Fairness.ServerSeedHash) {
		return nil, apperror.ErrSeedRevealMismatch(fmt.Errorf("round %s", round.ID))
	}

	next := round.Clone()
	if err := game.MarkSettled(next, s.clock.Now().UTC()); err != nil {
		return nil, err
	}
	next.Fairness.ServerSeed = seed

	err = s.persist(ctx, next, round.Version, func(tx pgx.Tx) error {
		if _, err := s.audit.Append(ctx, tx, next, domain.AuditRoundSettled, domain.ActorSystem, settledPayload{
			LedgerEntryID: entry.ID,
			Net:           entry.Amount,
			Released:      entry.Released,
			BalanceAfter:  entry.BalanceAfter,
		}); err != nil {
			return err
		}
		_, err := s.audit.Append(ctx, tx, next, domain.AuditSeedRevealed, domain.ActorSystem, revealPayload{
			ServerSeed:     seed,
			ServerSeedHash: next.Fairness.ServerSeedHash,
		})
		return err
	})
	if err != nil {
		if apperror.HasCode(err, apperror.CodeConcurrentModification) {
			current, loadErr := s.store.Load(ctx, round.ID)
			if loadErr == nil && current != nil && current.Status == domain.RoundStatusSettled {
				return current, nil
			}
		}
		return nil, err
	}

	s.log.Info().
		Str("round_id", next.ID.String()).
		Int64("net", next.Summary.TotalNet).
		Int64("balance_after", entry.BalanceAfter).
		Msg("round settled")

	return next, nil
}

// settleCompleted tries to settle a round that just completed. On failure
// the round stays COMPLETED and the sweeper picks it up.
func (s *RoundServiceImpl) settleCompleted(ctx context.Context, round *domain.Round) *domain.Round {
	settled, err := s.finalize(ctx, round)
	if err != nil {
		s.log.Error().Err(err).Str("round_id", round.ID.String()).Msg("settlement deferred")
		return round
	}
	return settled
}

// reject records a refused action and returns cause. Settled rounds are
// immutable, so their refusals are only logged.
func (s *RoundServiceImpl) reject(ctx context.Context, round *domain.Round, a domain.Action, cause error, at time.Time) error {
	var appErr *apperror.AppError
	if !errors.As(cause, &appErr) {
		return apperror.InternalError(fmt.Errorf("apply action: %w", cause))
	}
	switch appErr.Code {
	case apperror.CodeIllegalAction, apperror.CodeInvalidTransition, apperror.CodeInsufficientFunds:
	default:
		return cause
	}

	s.log.Info().
		Str("round_id", round.ID.String()).
		Str("action", string(a.Kind)).
		Str("reason", appErr.Message).
		Msg("action rejected")

	if round.Status == domain.RoundStatusSettled {
		return cause
	}

	next := round.Clone()
	game.Reject(next, a, appErr.Message, at)
	err := s.persist(ctx, next, round.Version, func(tx pgx.Tx) error {
		_, err := s.audit.Append(ctx, tx, next, domain.AuditActionRejected, domain.ActorPlayer, actionPayload{
			Kind:      a.Kind,
			Hand:      a.Hand,
			Amount:    a.Amount,
			Reason:    appErr.Message,
			Status:    next.Status,
			StateHash: next.StateHash(),
		})
		return err
	})
	if err != nil {
		s.log.Warn().Err(err).Str("round_id", round.ID.String()).Msg("failed to record rejected action")
	}
	return cause
}

// persist saves round with the audit entries written by record in a single
// transaction. expectedVersion 0 inserts.
func (s *RoundServiceImpl) persist(ctx context.Context, round *domain.Round, expectedVersion int64, record func(pgx.Tx) error) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := record(dbTx); err != nil {
		return apperror.InternalError(fmt.Errorf("append audit: %w", err))
	}

	if err := s.store.Save(ctx, dbTx, round, expectedVersion); err != nil {
		if apperror.HasCode(err, apperror.CodeConcurrentModification) {
			return err
		}
		return apperror.InternalError(fmt.Errorf("save round: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// appendCompleted writes the completion entry if the records from index
// from onward completed the round.
func (s *RoundServiceImpl) appendCompleted(ctx context.Context, tx pgx.Tx, round *domain.Round, from int) error {
	if round.Summary == nil {
		return nil
	}
	for _, rec := range round.History[from:] {
		if rec.Kind == domain.ActionComplete {
			_, err := s.audit.Append(ctx, tx, round, domain.AuditRoundCompleted, domain.ActorSystem, round.Summary)
			return err
		}
	}
	return nil
}

func (s *RoundServiceImpl) load(ctx context.Context, roundID, userID uuid.UUID) (*domain.Round, error) {
	round, err := s.store.Load(ctx, roundID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load round: %w", err))
	}
	// Someone else's round looks exactly like a missing one.
	if round == nil || (userID != uuid.Nil && round.UserID != userID) {
		return nil, apperror.ErrRoundNotFound()
	}
	return round, nil
}

// lock takes the per-round lock. If Redis is unreachable the optimistic
// version check on save still keeps writers apart.
func (s *RoundServiceImpl) lock(ctx context.Context, roundID uuid.UUID) (func(), error) {
	token, ok, err := s.locker.Acquire(ctx, roundID, s.cfg.LockTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("round_id", roundID.String()).Msg("round lock unavailable, relying on version check")
		return func() {}, nil
	}
	if !ok {
		return nil, apperror.ErrConcurrentModification()
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), roundID, token); err != nil {
			s.log.Warn().Err(err).Str("round_id", roundID.String()).Msg("failed to release round lock")
		}
	}, nil
}

// commit draws a server seed whose hash was never committed before.
func (s *RoundServiceImpl) commit(ctx context.Context) (fairness.Commitment, error) {
	for range commitAttempts {
		c, err := fairness.Commit(s.cfg.Entropy)
		if err != nil {
			return fairness.Commitment{}, apperror.InternalError(fmt.Errorf("draw server seed: %w", err))
		}
		ok, err := s.commitments.Register(ctx, c.ServerSeedHash, s.cfg.CommitmentTTL)
		if err != nil {
			return fairness.Commitment{}, apperror.InternalError(fmt.Errorf("register commitment: %w", err))
		}
		if ok {
			return c, nil
		}
		s.log.Warn().Str("server_seed_hash", c.ServerSeedHash).Msg("server seed already committed, drawing again")
	}
	return fairness.Commitment{}, apperror.InternalError(errors.New("no unused server seed after retries"))
}

func (s *RoundServiceImpl) release(ctx context.Context, reservationID uuid.UUID) {
	if _, err := s.ledger.Release(context.WithoutCancel(ctx), reservationID); err != nil {
		s.log.Error().Err(err).Str("reservation_id", reservationID.String()).Msg("failed to release funds of unsaved round")
	}
}

func validateClientSeed(seed string) error {
	if len(seed) > maxClientSeedLen {
		return apperror.Validation(fmt.Sprintf("client seed must be at most %d characters", maxClientSeedLen))
	}
	// ':' separates the fields of the keyed stream message.
	if strings.ContainsRune(seed, ':') {
		return apperror.Validation("client seed must not contain ':'")
	}
	return nil
}

type roundCreatedPayload struct {
	UserID         uuid.UUID             `json:"user_id"`
	BetAmount      int64                 `json:"bet_amount"`
	ReservationID  uuid.UUID             `json:"reservation_id"`
	ServerSeedHash string                `json:"server_seed_hash"`
	PublicHash     string                `json:"public_hash"`
	ClientSeed     string                `json:"client_seed"`
	Nonce          uint64                `json:"nonce"`
	ShoeHash       string                `json:"shoe_hash"`
	Table          domain.TableConfig    `json:"table"`
	Records        []domain.ActionRecord `json:"records"`
}

type actionPayload struct {
	Kind      domain.ActionKind     `json:"kind"`
	Hand      *int                  `json:"hand,omitempty"`
	Amount    int64                 `json:"amount,omitempty"`
	Reason    string                `json:"reason,omitempty"`
	Status    domain.RoundStatus    `json:"status"`
	StateHash string                `json:"state_hash"`
	Records   []domain.ActionRecord `json:"records,omitempty"`
}

type fundsPayload struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Extra         int64     `json:"extra"`
	LockedAmount  int64     `json:"locked_amount"`
}

type settledPayload struct {
	LedgerEntryID uuid.UUID `json:"ledger_entry_id"`
	Net           int64     `json:"net"`
	Released      int64     `json:"released"`
	BalanceAfter  int64     `json:"balance_after"`
}

type revealPayload struct {
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
}
