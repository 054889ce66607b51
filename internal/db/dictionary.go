package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"kwintel/internal/dictionary"
	"kwintel/internal/models"
	"kwintel/internal/normalize"
)

const entryColumns = `id, term, language, category, source, version_id, tombstone, created_at`

const ruleColumns = `id, rule_key, pattern_kind, pattern_text, category_override, action_override,
	scope, entity_id, priority, active, version_id, created_at`

// CreateVersion starts a new, empty dictionary version.
func (d *DB) CreateVersion(ctx context.Context, note string) (*models.DictionaryVersion, error) {
	return createVersion(ctx, d.Pool, note)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func createVersion(ctx context.Context, q querier, note string) (*models.DictionaryVersion, error) {
	var v models.DictionaryVersion
	err := q.QueryRow(ctx, `
		INSERT INTO dictionary_versions (note) VALUES ($1)
		RETURNING id, note, created_at
	`, note).Scan(&v.ID, &v.Note, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns every version id in ascending order.
func (d *DB) ListVersions(ctx context.Context) ([]int64, error) {
	rows, err := d.Pool.Query(ctx, `SELECT id FROM dictionary_versions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// ListVersionDetails returns every version with its note, newest first.
func (d *DB) ListVersionDetails(ctx context.Context) ([]models.DictionaryVersion, error) {
	rows, err := d.Pool.Query(ctx, `SELECT id, note, created_at FROM dictionary_versions ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []models.DictionaryVersion{}
	for rows.Next() {
		var v models.DictionaryVersion
		if err := rows.Scan(&v.ID, &v.Note, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// LatestVersion returns the newest version id.
func (d *DB) LatestVersion(ctx context.Context) (int64, error) {
	var id *int64
	if err := d.Pool.QueryRow(ctx, `SELECT MAX(id) FROM dictionary_versions`).Scan(&id); err != nil {
		return 0, err
	}
	if id == nil {
		return 0, ErrNoVersions
	}
	return *id, nil
}

// PublishVersion creates a version holding entries and rules in a single
// transaction. VersionID on the inputs is ignored.
func (d *DB) PublishVersion(ctx context.Context, note string, entries []models.DictionaryEntry, rules []models.CustomRule) (int64, error) {
	for _, r := range rules {
		if err := dictionary.ValidateRule(r); err != nil {
			return 0, fmt.Errorf("rule %q: %w", r.RuleKey, err)
		}
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	v, err := createVersion(ctx, tx, note)
	if err != nil {
		return 0, fmt.Errorf("failed to create version: %w", err)
	}

	if len(entries) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"dictionary_entries"},
			[]string{"term", "language", "category", "source", "version_id", "tombstone"},
			pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
				e := entries[i]
				source := e.Source
				if source == "" {
					source = models.SourceSystem
				}
				term := normalize.Normalize(e.Term, e.Language).Normalized
				return []any{term, string(e.Language), string(e.Category), string(source), v.ID, e.Tombstone}, nil
			}),
		)
		if err != nil {
			return 0, mapUniqueViolation(err, ErrDuplicateEntry)
		}
	}

	for _, r := range rules {
		_, err := tx.Exec(ctx, `
			INSERT INTO custom_rules (rule_key, pattern_kind, pattern_text, category_override, action_override,
				scope, entity_id, priority, active, version_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			r.RuleKey,
			string(r.Pattern.Kind),
			r.Pattern.Text,
			categoryParam(r.CategoryOverride),
			actionParam(r.ActionOverride),
			r.Scope,
			nullIfEmpty(r.EntityID),
			r.Priority,
			r.Active,
			v.ID,
		)
		if err != nil {
			return 0, mapUniqueViolation(err, ErrDuplicateRuleKey)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return v.ID, nil
}

// LoadSnapshot resolves the dictionary state visible at versionID (the
// latest version when nil) and compiles it into a snapshot.
func (d *DB) LoadSnapshot(ctx context.Context, versionID *int64) (*dictionary.Snapshot, error) {
	data, err := d.LoadSnapshotData(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return dictionary.NewSnapshot(data)
}

// LoadSnapshotData returns the resolved, serializable snapshot content.
func (d *DB) LoadSnapshotData(ctx context.Context, versionID *int64) (dictionary.SnapshotData, error) {
	var version int64
	if versionID == nil {
		latest, err := d.LatestVersion(ctx)
		if err != nil {
			return dictionary.SnapshotData{}, err
		}
		version = latest
	} else {
		var exists bool
		if err := d.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM dictionary_versions WHERE id = $1)`, *versionID).Scan(&exists); err != nil {
			return dictionary.SnapshotData{}, err
		}
		if !exists {
			return dictionary.SnapshotData{}, ErrVersionNotFound
		}
		version = *versionID
	}

	entries, err := d.entriesUpTo(ctx, version)
	if err != nil {
		return dictionary.SnapshotData{}, fmt.Errorf("failed to load entries: %w", err)
	}
	rules, err := d.rulesUpTo(ctx, version)
	if err != nil {
		return dictionary.SnapshotData{}, fmt.Errorf("failed to load rules: %w", err)
	}
	return dictionary.Resolve(entries, rules, version), nil
}

func (d *DB) entriesUpTo(ctx context.Context, version int64) ([]models.DictionaryEntry, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+entryColumns+` FROM dictionary_entries WHERE version_id <= $1`, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.DictionaryEntry
	for rows.Next() {
		var e models.DictionaryEntry
		var lang, cat, source string
		if err := rows.Scan(&e.ID, &e.Term, &lang, &cat, &source, &e.VersionID, &e.Tombstone, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Language = models.Language(lang)
		e.Category = models.Category(cat)
		e.Source = models.Source(source)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (d *DB) rulesUpTo(ctx context.Context, version int64) ([]models.CustomRule, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+ruleColumns+` FROM custom_rules WHERE version_id <= $1`, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.CustomRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// scanRule scans a row into a CustomRule.
func scanRule(row pgx.Row) (*models.CustomRule, error) {
	var r models.CustomRule
	var kind string
	var category, action, entityID *string
	err := row.Scan(
		&r.ID,
		&r.RuleKey,
		&kind,
		&r.Pattern.Text,
		&category,
		&action,
		&r.Scope,
		&entityID,
		&r.Priority,
		&r.Active,
		&r.VersionID,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Pattern.Kind = models.PatternKind(kind)
	if category != nil {
		c := models.Category(*category)
		r.CategoryOverride = &c
	}
	if action != nil {
		a := models.ActionType(*action)
		r.ActionOverride = &a
	}
	if entityID != nil {
		r.EntityID = *entityID
	}
	return &r, nil
}

func categoryParam(c *models.Category) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func actionParam(a *models.ActionType) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapUniqueViolation(err, sentinel error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel
	}
	return err
}
