package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const roundColumns = `id, user_id, status, bet_amount, insurance_bet, locked_amount, reservation_id,
	server_seed, server_seed_sealed, server_seed_hash, public_hash, client_seed, nonce, shoe_hash,
	shoe, state, history, summary, table_config, audit_seq, audit_head,
	created_at, last_action_at, settled_at, version`

// RoundRepo implements ports.RoundStore. Shoe, play state, history and
// summary are stored as JSONB documents next to the indexed scalar columns.
type RoundRepo struct {
	pool Pool
}

// NewRoundRepo creates a new RoundRepo.
func NewRoundRepo(pool Pool) *RoundRepo {
	return &RoundRepo{pool: pool}
}

// Load fetches a round by ID. Returns nil, nil if not found.
func (r *RoundRepo) Load(ctx context.Context, id uuid.UUID) (*domain.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`

	var (
		round                                domain.Round
		serverSeed                           *string
		nonce                                int64
		shoe, state, history, summary, table []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&round.ID, &round.UserID, &round.Status, &round.BetAmount, &round.InsuranceBet,
		&round.LockedAmount, &round.ReservationID,
		&serverSeed, &round.Fairness.ServerSeedSealed, &round.Fairness.ServerSeedHash,
		&round.Fairness.PublicHash, &round.Fairness.ClientSeed, &nonce, &round.Fairness.ShoeHash,
		&shoe, &state, &history, &summary, &table, &round.AuditSeq, &round.AuditHead,
		&round.CreatedAt, &round.LastActionAt, &round.SettledAt, &round.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get round: %w", err)
	}

	if serverSeed != nil {
		round.Fairness.ServerSeed = *serverSeed
	}
	round.Fairness.Nonce = uint64(nonce)

	if err := json.Unmarshal(shoe, &round.Shoe); err != nil {
		return nil, fmt.Errorf("decode shoe: %w", err)
	}
	if err := json.Unmarshal(state, &round.State); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if err := json.Unmarshal(history, &round.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if err := json.Unmarshal(table, &round.Table); err != nil {
		return nil, fmt.Errorf("decode table config: %w", err)
	}
	if len(summary) > 0 {
		round.Summary = &domain.Summary{}
		if err := json.Unmarshal(summary, round.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	}
	return &round, nil
}

type roundDocs struct {
	serverSeed *string
	shoe       []byte
	state      []byte
	history    []byte
	summary    []byte
	table      []byte
}

func encodeRound(round *domain.Round) (*roundDocs, error) {
	var (
		d   roundDocs
		err error
	)
	if round.Fairness.ServerSeed != "" {
		seed := round.Fairness.ServerSeed
		d.serverSeed = &seed
	}
	if d.shoe, err = json.Marshal(round.Shoe); err != nil {
		return nil, fmt.Errorf("encode shoe: %w", err)
	}
	if d.state, err = json.Marshal(round.State); err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	history := round.History
	if history == nil {
		history = []domain.ActionRecord{}
	}
	if d.history, err = json.Marshal(history); err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	if round.Summary != nil {
		if d.summary, err = json.Marshal(round.Summary); err != nil {
			return nil, fmt.Errorf("encode summary: %w", err)
		}
	}
	if d.table, err = json.Marshal(round.Table); err != nil {
		return nil, fmt.Errorf("encode table config: %w", err)
	}
	return &d, nil
}

// Save inserts a new round (expectedVersion 0) or updates it under an
// optimistic version check. Must be called within a transaction.
func (r *RoundRepo) Save(ctx context.Context, tx pgx.Tx, round *domain.Round, expectedVersion int64) error {
	d, err := encodeRound(round)
	if err != nil {
		return err
	}

	if expectedVersion == 0 {
		query := `INSERT INTO rounds (` + roundColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, 1)`

		_, err = tx.Exec(ctx, query,
			round.ID, round.UserID, string(round.Status), round.BetAmount, round.InsuranceBet,
			round.LockedAmount, round.ReservationID,
			d.serverSeed, round.Fairness.ServerSeedSealed, round.Fairness.ServerSeedHash,
			round.Fairness.PublicHash, round.Fairness.ClientSeed, int64(round.Fairness.Nonce), round.Fairness.ShoeHash,
			d.shoe, d.state, d.history, d.summary, d.table, round.AuditSeq, round.AuditHead,
			round.CreatedAt, round.LastActionAt, round.SettledAt,
		)
		if err != nil {
			return fmt.Errorf("insert round: %w", err)
		}
		round.Version = 1
		return nil
	}

	query := `UPDATE rounds SET status = $1, insurance_bet = $2, locked_amount = $3, server_seed = $4,
		state = $5, history = $6, summary = $7, audit_seq = $8, audit_head = $9,
		last_action_at = $10, settled_at = $11, version = version + 1
		WHERE id = $12 AND version = $13`

	tag, err := tx.Exec(ctx, query,
		string(round.Status), round.InsuranceBet, round.LockedAmount, d.serverSeed,
		d.state, d.history, d.summary, round.AuditSeq, round.AuditHead,
		round.LastActionAt, round.SettledAt, round.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrConcurrentModification()
	}
	round.Version = expectedVersion + 1
	return nil
}

// ListStale returns IDs of rounds in one of statuses with no action since before,
// oldest first.
func (r *RoundRepo) ListStale(ctx context.Context, statuses []domain.RoundStatus, before time.Time, limit int) ([]uuid.UUID, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `SELECT id FROM rounds
		WHERE status = ANY($1) AND last_action_at < $2
		ORDER BY last_action_at
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, names, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale rounds: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale round: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale rounds: %w", err)
	}
	return ids, nil
}
