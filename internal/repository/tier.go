package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"dota-scoreboard/internal/domain"
)

// TierOverrideRepository persists manual handicap-tier assignments for
// players who have not reached the auto-classification threshold.
type TierOverrideRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewTierOverrideRepository(db *sql.DB, logger zerolog.Logger) *TierOverrideRepository {
	return &TierOverrideRepository{db: db, logger: logger}
}

// Set stores or updates the override for a player.
func (r *TierOverrideRepository) Set(ctx context.Context, name string, tier domain.Tier) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tier_overrides (player_name, tier) VALUES (?, ?)
		 ON CONFLICT(player_name) DO UPDATE SET tier = excluded.tier`,
		name, string(tier),
	)
	if err != nil {
		return fmt.Errorf("set tier override for %s: %w", name, err)
	}
	r.logger.Debug().Str("player", name).Str("tier", string(tier)).Msg("tier override set")
	return nil
}

// Remove deletes a player's override; unknown players report not found.
func (r *TierOverrideRepository) Remove(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tier_overrides WHERE player_name = ?`, name)
	if err != nil {
		return fmt.Errorf("remove tier override for %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "player", Key: name}
	}
	return nil
}

// All returns every stored override.
func (r *TierOverrideRepository) All(ctx context.Context) (map[string]domain.Tier, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT player_name, tier FROM tier_overrides`)
	if err != nil {
		return nil, fmt.Errorf("list tier overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]domain.Tier)
	for rows.Next() {
		var name, tier string
		if err := rows.Scan(&name, &tier); err != nil {
			return nil, fmt.Errorf("scan tier override: %w", err)
		}
		overrides[name] = domain.Tier(tier)
	}
	return overrides, rows.Err()
}
