package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"kwintel/internal/models"
)

// suggestionColumns is the standard column list for suggestion queries.
const suggestionColumns = `id, candidate_text, evidence_keyword_ids, suggested_scope, scope_ref, status, created_at, updated_at`

// scanSuggestion scans a row into a LeakageSuggestion.
func scanSuggestion(row pgx.Row) (*models.LeakageSuggestion, error) {
	var s models.LeakageSuggestion
	err := row.Scan(
		&s.ID,
		&s.CandidateText,
		&s.EvidenceKeywordIDs,
		&s.SuggestedScope,
		&s.ScopeRef,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSuggestions merges suggestions into the stored queue and returns the
// stored state of each. New evidence is unioned into pending suggestions;
// reviewed suggestions are returned unchanged and never duplicated.
func (d *DB) SaveSuggestions(ctx context.Context, suggestions []models.LeakageSuggestion) ([]models.LeakageSuggestion, error) {
	out := make([]models.LeakageSuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		stored, err := d.mergeSuggestion(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("failed to save suggestion %q: %w", s.CandidateText, err)
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (d *DB) mergeSuggestion(ctx context.Context, s models.LeakageSuggestion) (*models.LeakageSuggestion, error) {
	evidence := s.EvidenceKeywordIDs
	if evidence == nil {
		evidence = []string{}
	}

	stored, err := scanSuggestion(d.Pool.QueryRow(ctx, `
		INSERT INTO leakage_suggestions (candidate_text, evidence_keyword_ids, suggested_scope, scope_ref, status)
		VALUES ($1, $2, $3, $4, 'pending')
		ON CONFLICT (suggested_scope, scope_ref, candidate_text) DO UPDATE
		SET evidence_keyword_ids = ARRAY(
				SELECT DISTINCT e
				FROM unnest(leakage_suggestions.evidence_keyword_ids || EXCLUDED.evidence_keyword_ids) AS e
				ORDER BY e
			),
			updated_at = NOW()
		WHERE leakage_suggestions.status = 'pending'
		RETURNING `+suggestionColumns,
		s.CandidateText, evidence, s.SuggestedScope, s.ScopeRef,
	))
	if !errors.Is(err, ErrSuggestionNotFound) {
		return stored, err
	}

	// The conflicting row has been reviewed, so the upsert skipped it.
	return scanSuggestion(d.Pool.QueryRow(ctx, `
		SELECT `+suggestionColumns+`
		FROM leakage_suggestions
		WHERE suggested_scope = $1 AND scope_ref = $2 AND candidate_text = $3
	`, s.SuggestedScope, s.ScopeRef, s.CandidateText))
}

// ListSuggestions returns suggestions, optionally filtered by status,
// newest first.
func (d *DB) ListSuggestions(ctx context.Context, status string) ([]models.LeakageSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM leakage_suggestions`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, candidate_text`

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suggestions := []models.LeakageSuggestion{}
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, *s)
	}
	return suggestions, rows.Err()
}

// GetSuggestion returns a suggestion by id.
func (d *DB) GetSuggestion(ctx context.Context, id uuid.UUID) (*models.LeakageSuggestion, error) {
	return scanSuggestion(d.Pool.QueryRow(ctx,
		`SELECT `+suggestionColumns+` FROM leakage_suggestions WHERE id = $1`, id))
}

// UpdateSuggestionStatus records a review outcome. Only pending suggestions
// can be reviewed.
func (d *DB) UpdateSuggestionStatus(ctx context.Context, id uuid.UUID, status string) (*models.LeakageSuggestion, error) {
	s, err := scanSuggestion(d.Pool.QueryRow(ctx, `
		UPDATE leakage_suggestions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+suggestionColumns,
		id, status,
	))
	if !errors.Is(err, ErrSuggestionNotFound) {
		return s, err
	}

	// Distinguish a missing row from one that was already reviewed.
	if _, err := d.GetSuggestion(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrSuggestionClosed
}

// CountSuggestionsByStatus returns the number of suggestions per status.
func (d *DB) CountSuggestionsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := d.Pool.Query(ctx, `SELECT status, COUNT(*) FROM leakage_suggestions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{
		models.SuggestionPending:   0,
		models.SuggestionAccepted:  0,
		models.SuggestionDismissed: 0,
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
