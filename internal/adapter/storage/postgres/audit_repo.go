package postgres

import (
	"context"
	"fmt"

	"blackjack-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuditRepo implements ports.AuditRepository. Entries are never updated or deleted.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Append inserts one chained entry within a database transaction.
func (r *AuditRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	query := `INSERT INTO audit_entries (id, round_id, seq, kind, actor, payload, prev_hash, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.RoundID, e.Seq, string(e.Kind), string(e.Actor),
		string(e.Payload), e.PrevHash, e.Hash, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByRound returns a round's entries in insertion order.
func (r *AuditRepo) ListByRound(ctx context.Context, roundID uuid.UUID) ([]domain.AuditEntry, error) {
	query := `SELECT id, round_id, seq, kind, actor, payload, prev_hash, hash, created_at
		FROM audit_entries WHERE round_id = $1 ORDER BY seq`

	rows, err := r.pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var payload string
		if err := rows.Scan(&e.ID, &e.RoundID, &e.Seq, &e.Kind, &e.Actor, &payload, &e.PrevHash, &e.Hash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
