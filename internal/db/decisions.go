package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"kwintel/internal/models"
)

// SaveDecisions appends a batch of decisions. Decisions are an audit trail
// and are never updated.
func (d *DB) SaveDecisions(ctx context.Context, decisions []models.ActionDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	_, err := d.Pool.CopyFrom(ctx,
		pgx.Identifier{"action_decisions"},
		[]string{"keyword_id", "action", "step", "rationale", "safeguard_triggered", "decided_at_version_id"},
		pgx.CopyFromSlice(len(decisions), func(i int) ([]any, error) {
			dec := decisions[i]
			return []any{dec.KeywordID, string(dec.Action), string(dec.Step), dec.Rationale, dec.SafeguardTriggered, dec.DecidedAtVersionID}, nil
		}),
	)
	return err
}

// ListDecisions returns the decision history of a keyword, newest first.
func (d *DB) ListDecisions(ctx context.Context, keywordID string, limit int) ([]models.ActionDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.Pool.Query(ctx, `
		SELECT id, keyword_id, action, step, rationale, safeguard_triggered, decided_at_version_id, created_at
		FROM action_decisions
		WHERE keyword_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, keywordID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	decisions := []models.ActionDecision{}
	for rows.Next() {
		var dec models.ActionDecision
		var action, step string
		if err := rows.Scan(&dec.ID, &dec.KeywordID, &action, &step, &dec.Rationale,
			&dec.SafeguardTriggered, &dec.DecidedAtVersionID, &dec.CreatedAt); err != nil {
			return nil, err
		}
		dec.Action = models.ActionType(action)
		dec.Step = models.DecisionStep(step)
		decisions = append(decisions, dec)
	}
	return decisions, rows.Err()
}
