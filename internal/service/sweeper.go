package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/internal/core/ports"
	"blackjack-engine/pkg/apperror"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SweeperConfig controls how abandoned rounds are found and settled.
type SweeperConfig struct {
	AbandonTimeout time.Duration // idle time before a PLAYER_TURN round is auto-stood
	Interval       time.Duration
	Batch          int
	Workers        int
}

// Sweeper settles rounds nobody will finish: player turns idle past the
// abandon timeout, and rounds left in DEALER_TURN or COMPLETED by a crash
// or a failed settlement. It also releases reservations whose round was
// never saved.
type Sweeper struct {
	store        ports.RoundStore
	reservations ports.ReservationRepository
	ledger       ports.Ledger
	rounds       ports.RoundService
	clock        quartz.Clock
	cfg          SweeperConfig
	log          zerolog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(
	store ports.RoundStore,
	reservations ports.ReservationRepository,
	ledger ports.Ledger,
	rounds ports.RoundService,
	clock quartz.Clock,
	cfg SweeperConfig,
	log zerolog.Logger,
) *Sweeper {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Batch < 1 {
		cfg.Batch = 100
	}
	return &Sweeper{
		store:        store,
		reservations: reservations,
		ledger:       ledger,
		rounds:       rounds,
		clock:        clock,
		cfg:          cfg,
		log:          log,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.Interval, "sweeper")
	defer ticker.Stop()

	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Dur("abandon_timeout", s.cfg.AbandonTimeout).
		Msg("sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper stopped")
			return nil
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("sweep failed")
			} else if n > 0 {
				s.log.Info().Int("settled", n).Msg("sweep finished")
			}

			released, err := s.ReleaseOrphans(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("orphan release failed")
			} else if released > 0 {
				s.log.Info().Int("released", released).Msg("orphaned reservations released")
			}
		}
	}
}

// SweepOnce force-settles one batch of stale rounds and returns how many
// were settled. Failures of single rounds are logged, not returned.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()

	abandoned, err := s.store.ListStale(ctx,
		[]domain.RoundStatus{domain.RoundStatusPlayerTurn},
		now.Add(-s.cfg.AbandonTimeout), s.cfg.Batch)
	if err != nil {
		return 0, fmt.Errorf("list abandoned rounds: %w", err)
	}

	// Dealer turns and settlements finish within a request, so anything
	// older than one interval was interrupted.
	stuck, err := s.store.ListStale(ctx,
		[]domain.RoundStatus{domain.RoundStatusDealerTurn, domain.RoundStatusCompleted},
		now.Add(-s.cfg.Interval), s.cfg.Batch)
	if err != nil {
		return 0, fmt.Errorf("list unsettled rounds: %w", err)
	}

	var settled atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, id := range append(abandoned, stuck...) {
		g.Go(func() error {
			s.settle(gctx, id, &settled)
			return nil
		})
	}
	_ = g.Wait()

	return int(settled.Load()), nil
}

func (s *Sweeper) settle(ctx context.Context, id uuid.UUID, settled *atomic.Int64) {
	view, err := s.rounds.ForceSettle(ctx, id, uuid.Nil)
	switch {
	case apperror.HasCode(err, apperror.CodeConcurrentModification):
		// A player request holds the round; the next sweep retries.
		s.log.Debug().Str("round_id", id.String()).Msg("round busy, skipped")
	case err != nil:
		s.log.Error().Err(err).Str("round_id", id.String()).Msg("failed to settle stale round")
	case view.Status == domain.RoundStatusSettled:
		settled.Add(1)
		s.log.Info().Str("round_id", id.String()).Msg("stale round settled")
	}
}

// ReleaseOrphans returns the funds of open reservations whose round was never
// saved, as when the process dies between locking the bet and writing the
// round. Only reservations older than the abandon timeout are considered so
// a round still being created is left alone.
func (s *Sweeper) ReleaseOrphans(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().UTC().Add(-s.cfg.AbandonTimeout)

	ids, err := s.reservations.ListOrphaned(ctx, cutoff, s.cfg.Batch)
	if err != nil {
		return 0, fmt.Errorf("list orphaned reservations: %w", err)
	}

	released := 0
	for _, id := range ids {
		if _, err := s.ledger.Release(ctx, id); err != nil {
			s.log.Error().Err(err).Str("reservation_id", id.String()).Msg("failed to release orphaned reservation")
			continue
		}
		released++
		s.log.Warn().Str("reservation_id", id.String()).Msg("orphaned reservation released")
	}
	return released, nil
}
