package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"dota-scoreboard/internal/domain"
)

// MatchRepository persists match records in sqlite. A record spans a row in
// matches plus one row per roster slot in match_players; roster order is kept
// via the position column so a reload reproduces the submitted order exactly.
type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(db *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

const tagSeparator = ","

func encodeTags(tags []domain.Tag) string {
	labels := make([]string, len(tags))
	for i, t := range tags {
		labels[i] = string(t)
	}
	return strings.Join(labels, tagSeparator)
}

func decodeTags(raw string) []domain.Tag {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, tagSeparator)
	tags := make([]domain.Tag, len(parts))
	for i, p := range parts {
		tags[i] = domain.Tag(p)
	}
	return tags
}

// Insert stores a new match record and its roster atomically.
func (r *MatchRepository) Insert(ctx context.Context, match *domain.MatchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertMatchTx(ctx, tx, match); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace swaps out the record stored under match.ID wholesale. Records are
// never patched in place: an edit is a delete plus re-insert under the same
// id inside one transaction.
func (r *MatchRepository) Replace(ctx context.Context, match *domain.MatchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, match.ID)
	if err != nil {
		return fmt.Errorf("delete match %s: %w", match.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "match", Key: match.ID}
	}
	if err := insertMatchTx(ctx, tx, match); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMatchTx(ctx context.Context, tx *sql.Tx, match *domain.MatchRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO matches (id, recorded_at, winning_team, screenshot_ref, compensation, invalid)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		match.ID, match.RecordedAt, string(match.WinningTeam),
		match.ScreenshotRef, match.Compensation, match.Invalid,
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", match.ID, err)
	}

	for i, entry := range match.Roster {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO match_players (match_id, position, name, team, tags)
			 VALUES (?, ?, ?, ?, ?)`,
			match.ID, i, entry.Name, string(entry.Team), encodeTags(entry.Tags),
		)
		if err != nil {
			return fmt.Errorf("insert roster entry %d of match %s: %w", i, match.ID, err)
		}
	}
	return nil
}

// Delete removes a match record; the roster rows cascade.
func (r *MatchRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete match %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "match", Key: id}
	}
	return nil
}

// GetByID loads a single match record with its roster.
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*domain.MatchRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, recorded_at, winning_team, screenshot_ref, compensation, invalid
		 FROM matches WHERE id = ?`, id)

	var m domain.MatchRecord
	var team string
	err := row.Scan(&m.ID, &m.RecordedAt, &team, &m.ScreenshotRef, &m.Compensation, &m.Invalid)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Kind: "match", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}
	m.WinningTeam = domain.Team(team)

	rows, err := r.db.QueryContext(ctx,
		`SELECT name, team, tags FROM match_players WHERE match_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load roster of match %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, entryTeam, tags string
		if err := rows.Scan(&name, &entryTeam, &tags); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		m.Roster = append(m.Roster, domain.PlayerEntry{
			Name: name,
			Team: domain.Team(entryTeam),
			Tags: decodeTags(tags),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListAll returns every stored match record with its roster, oldest first.
// The ordering key is (recorded_at, id), which survives replacements, so a
// recompute over the result is deterministic.
func (r *MatchRepository) ListAll(ctx context.Context) ([]domain.MatchRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recorded_at, winning_team, screenshot_ref, compensation, invalid
		 FROM matches ORDER BY recorded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.MatchRecord
	byID := make(map[string]*domain.MatchRecord)
	for rows.Next() {
		var m domain.MatchRecord
		var team string
		if err := rows.Scan(&m.ID, &m.RecordedAt, &team, &m.ScreenshotRef, &m.Compensation, &m.Invalid); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.WinningTeam = domain.Team(team)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	for i := range matches {
		byID[matches[i].ID] = &matches[i]
	}
	if err := r.loadRosters(ctx, byID); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *MatchRepository) loadRosters(ctx context.Context, matches map[string]*domain.MatchRecord) error {
	if len(matches) == 0 {
		return nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, name, team, tags FROM match_players ORDER BY match_id, position`)
	if err != nil {
		return fmt.Errorf("list rosters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var matchID, name, team, tags string
		if err := rows.Scan(&matchID, &name, &team, &tags); err != nil {
			return fmt.Errorf("scan roster entry: %w", err)
		}
		m, ok := matches[matchID]
		if !ok {
			continue
		}
		m.Roster = append(m.Roster, domain.PlayerEntry{
			Name: name,
			Team: domain.Team(team),
			Tags: decodeTags(tags),
		})
	}
	return rows.Err()
}
