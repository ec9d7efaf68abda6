package scoring

import (
	"sort"
	"time"

	"dota-scoreboard/internal/domain"
)

// Snapshot is the complete derived state for one version of the match store.
// It is built from scratch on every mutation and never modified afterwards,
// so readers can hold it without locking.
type Snapshot struct {
	ComputedAt  time.Time
	Players     map[string]*domain.PlayerAggregate
	Leaderboard []*domain.PlayerAggregate
}

// Aggregate runs the scoring rules over the full ordered match history and
// produces the derived state. Totals are commutative sums, so the match order
// only matters for reproducibility, not for the result.
//
// It fails only on records that break the binary-team structure (empty
// roster, unknown team label); those indicate corrupted persisted state and
// surface as a DataIntegrityError so the caller can keep its prior snapshot.
func Aggregate(matches []domain.MatchRecord) (*Snapshot, error) {
	players := make(map[string]*domain.PlayerAggregate)

	for i := range matches {
		match := &matches[i]
		if err := checkRecord(match); err != nil {
			return nil, err
		}

		for j := range match.Roster {
			entry := &match.Roster[j]
			agg := playerFor(players, entry.Name)

			agg.TotalScore += ScoreDelta(match, entry)
			agg.MatchesPlayed++
			if entry.Team == match.WinningTeam {
				agg.Wins++
			} else {
				agg.Losses++
			}
			for _, tag := range entry.Tags {
				agg.TagCounts[tag]++
			}
		}

		applyRelationships(players, match)
	}

	leaderboard := make([]*domain.PlayerAggregate, 0, len(players))
	for _, agg := range players {
		if agg.MatchesPlayed > 0 {
			agg.WinRate = float64(agg.Wins) / float64(agg.MatchesPlayed)
		}
		leaderboard = append(leaderboard, agg)
	}
	sortLeaderboard(leaderboard)
	for i, agg := range leaderboard {
		agg.Rank = i + 1
	}

	return &Snapshot{
		ComputedAt:  time.Now(),
		Players:     players,
		Leaderboard: leaderboard,
	}, nil
}

func checkRecord(match *domain.MatchRecord) error {
	if len(match.Roster) == 0 {
		return &domain.DataIntegrityError{MatchID: match.ID, Reason: "empty roster"}
	}
	if !match.WinningTeam.Valid() {
		return &domain.DataIntegrityError{
			MatchID: match.ID,
			Reason:  "unrecognized winning team " + string(match.WinningTeam),
		}
	}
	for _, entry := range match.Roster {
		if !entry.Team.Valid() {
			return &domain.DataIntegrityError{
				MatchID: match.ID,
				Reason:  "unrecognized team " + string(entry.Team) + " for player " + entry.Name,
			}
		}
	}
	return nil
}

func playerFor(players map[string]*domain.PlayerAggregate, name string) *domain.PlayerAggregate {
	agg, ok := players[name]
	if !ok {
		agg = &domain.PlayerAggregate{
			Name:          name,
			TagCounts:     make(map[domain.Tag]int),
			Relationships: make(map[string]*domain.Relationship),
		}
		players[name] = agg
	}
	return agg
}

// applyRelationships updates pairwise teammate/opponent counters for every
// unordered pair of distinct players in the match. Teammate games and wins
// count on both rows. Opponent games count on both rows too, but the win is
// credited only on the winner's row toward the loser.
//
// The same name twice in one roster is a pass-through data error elsewhere in
// aggregation; here a pair of identical names is skipped so no player grows a
// relationship with themselves.
func applyRelationships(players map[string]*domain.PlayerAggregate, match *domain.MatchRecord) {
	for i := range match.Roster {
		for j := i + 1; j < len(match.Roster); j++ {
			a, b := &match.Roster[i], &match.Roster[j]
			if a.Name == b.Name {
				continue
			}
			ra := relationFor(players, a.Name, b.Name)
			rb := relationFor(players, b.Name, a.Name)

			if a.Team == b.Team {
				ra.GamesAsTeammate++
				rb.GamesAsTeammate++
				if a.Team == match.WinningTeam {
					ra.WinsAsTeammate++
					rb.WinsAsTeammate++
				}
				continue
			}

			ra.GamesAsOpponent++
			rb.GamesAsOpponent++
			if a.Team == match.WinningTeam {
				ra.WinsAsOpponent++
			} else {
				rb.WinsAsOpponent++
			}
		}
	}
}

func relationFor(players map[string]*domain.PlayerAggregate, name, other string) *domain.Relationship {
	agg := playerFor(players, name)
	rel, ok := agg.Relationships[other]
	if !ok {
		rel = &domain.Relationship{}
		agg.Relationships[other] = rel
	}
	return rel
}

// sortLeaderboard orders by score descending, then matches played descending,
// then name ascending, so equal inputs always render identically.
func sortLeaderboard(leaderboard []*domain.PlayerAggregate) {
	sort.Slice(leaderboard, func(i, j int) bool {
		a, b := leaderboard[i], leaderboard[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.MatchesPlayed != b.MatchesPlayed {
			return a.MatchesPlayed > b.MatchesPlayed
		}
		return a.Name < b.Name
	})
}
