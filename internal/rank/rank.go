// Package rank classifies players into handicap tiers and rates roster
// balance. Tiers never feed back into scoring directly; their only effect on
// points is the compensation a submission stores on the match record.
package rank

import "dota-scoreboard/internal/domain"

const (
	// AutoClassifyGames is the match count at which a player's tier stops
	// being manual and is derived from their leaderboard position.
	AutoClassifyGames = 20

	// Share of qualified players rated strong (top of the table) and weak
	// (bottom). Everyone between is average.
	strongShare = 0.20
	weakShare   = 0.20

	// compensationPerPlayer is granted to each losing player when the
	// winning roster was exactly one strength point ahead.
	compensationPerPlayer = 0.5

	// invalidGap is the strength difference at which a result no longer
	// counts: the matchup was too lopsided to score.
	invalidGap = 2
)

// Classify returns the tier of every player on the leaderboard. A manual
// override always wins. Otherwise players with at least AutoClassifyGames
// matches are ranked among themselves by total score: top 20% strong, middle
// 60% average, bottom 20% weak. Everyone else stays unclassified.
//
// The leaderboard must already be sorted by score descending, which is what
// the aggregation pass produces.
func Classify(leaderboard []*domain.PlayerAggregate, overrides map[string]domain.Tier) map[string]domain.Tier {
	var qualified []string
	for _, agg := range leaderboard {
		if agg.MatchesPlayed >= AutoClassifyGames {
			qualified = append(qualified, agg.Name)
		}
	}

	tiers := make(map[string]domain.Tier, len(leaderboard))
	total := len(qualified)
	for i, name := range qualified {
		percentile := float64(i+1) / float64(total)
		switch {
		case percentile <= strongShare:
			tiers[name] = domain.TierStrong
		case percentile <= 1.0-weakShare:
			tiers[name] = domain.TierAverage
		default:
			tiers[name] = domain.TierWeak
		}
	}

	for name, tier := range overrides {
		tiers[name] = tier
	}
	return tiers
}

// IsAuto reports whether a player's tier comes from classification rather
// than a manual override.
func IsAuto(agg *domain.PlayerAggregate, overrides map[string]domain.Tier) bool {
	if _, overridden := overrides[agg.Name]; overridden {
		return false
	}
	return agg.MatchesPlayed >= AutoClassifyGames
}

// RosterValue sums the tier values of the named players. allClassified is
// false if any player has no tier yet; unclassified players contribute zero.
func RosterValue(names []string, tiers map[string]domain.Tier) (value int, allClassified bool) {
	allClassified = true
	for _, name := range names {
		tier, ok := tiers[name]
		if !ok || tier == domain.TierUnclassified {
			allClassified = false
			continue
		}
		value += tier.Value()
	}
	return value, allClassified
}

// Assessment is the outcome of a roster-balance check for one finished match.
type Assessment struct {
	WinnerValue   int
	LoserValue    int
	Difference    int
	AllClassified bool
	Compensation  float64
	Invalid       bool
}

// Assess applies the balance rules to a finished match. They only engage once
// every rostered player is classified: a winner-minus-loser strength gap of
// invalidGap or more voids the result, a gap of exactly one grants each
// losing player compensation.
func Assess(winnerNames, loserNames []string, tiers map[string]domain.Tier) Assessment {
	winnerValue, winnerOK := RosterValue(winnerNames, tiers)
	loserValue, loserOK := RosterValue(loserNames, tiers)

	a := Assessment{
		WinnerValue:   winnerValue,
		LoserValue:    loserValue,
		Difference:    winnerValue - loserValue,
		AllClassified: winnerOK && loserOK,
	}
	if !a.AllClassified {
		return a
	}
	if a.Difference >= invalidGap {
		a.Invalid = true
	} else if a.Difference == 1 {
		a.Compensation = compensationPerPlayer
	}
	return a
}
