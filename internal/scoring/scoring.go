// Package scoring converts stored match records into derived player
// statistics. Everything in here is a pure function of its inputs: the
// service layer owns when to run it and what to do with the result.
package scoring

import "dota-scoreboard/internal/domain"

// Point values for a single match outcome.
const (
	winPoints     = 1.0
	lossPoints    = -1.0
	mvpBonus      = 0.5
	zombiePenalty = -0.5
)

// ScoreDelta returns the point change one roster entry earns from its match.
//
// Base component: +1 on a win, -1 on a loss, except that SVP suppresses the
// loss penalty entirely (an SVP holder never loses points). Tag bonuses are
// additive and independent of the outcome: MVP +0.5, Zombie -0.5. Holding
// MVP and Zombie together is allowed and nets to zero. A losing entry also
// receives the match's stored roster-balance compensation, tags or not.
func ScoreDelta(match *domain.MatchRecord, entry *domain.PlayerEntry) float64 {
	won := entry.Team == match.WinningTeam

	var delta float64
	if won {
		delta = winPoints
	} else {
		if !domain.HasTag(entry.Tags, domain.TagSVP) {
			delta = lossPoints
		}
		delta += match.Compensation
	}

	if domain.HasTag(entry.Tags, domain.TagMVP) {
		delta += mvpBonus
	}
	if domain.HasTag(entry.Tags, domain.TagZombie) {
		delta += zombiePenalty
	}
	return delta
}
