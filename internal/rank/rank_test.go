package rank

import (
	"testing"

	"dota-scoreboard/internal/domain"
)

// board builds a leaderboard of n qualified players named p0..p(n-1), already
// sorted by score descending, plus one rookie below the game threshold.
func board(qualified int) []*domain.PlayerAggregate {
	var players []*domain.PlayerAggregate
	for i := 0; i < qualified; i++ {
		players = append(players, &domain.PlayerAggregate{
			Name:          playerName(i),
			TotalScore:    float64(qualified - i),
			MatchesPlayed: AutoClassifyGames,
		})
	}
	players = append(players, &domain.PlayerAggregate{Name: "rookie", MatchesPlayed: 3})
	return players
}

func playerName(i int) string {
	return string(rune('a' + i))
}

func TestClassify_Percentiles(t *testing.T) {
	// 10 qualified players: top 2 strong, next 6 average, bottom 2 weak.
	tiers := Classify(board(10), nil)

	wantStrong := []string{"a", "b"}
	wantWeak := []string{"i", "j"}
	for _, name := range wantStrong {
		if tiers[name] != domain.TierStrong {
			t.Errorf("%s = %s, want strong", name, tiers[name])
		}
	}
	for _, name := range wantWeak {
		if tiers[name] != domain.TierWeak {
			t.Errorf("%s = %s, want weak", name, tiers[name])
		}
	}
	if tiers["e"] != domain.TierAverage {
		t.Errorf("mid-table player = %s, want average", tiers["e"])
	}
	if _, ok := tiers["rookie"]; ok {
		t.Error("rookie below the game threshold must stay unclassified")
	}
}

// A lone qualified player sits at percentile 1.0 and lands in the weak
// bucket. Counterintuitive but deliberate: the buckets are positional, and a
// one-player population has no top 20% to be in.
func TestClassify_SingleQualifiedPlayer(t *testing.T) {
	tiers := Classify(board(1), nil)
	if tiers["a"] != domain.TierWeak {
		t.Errorf("sole qualified player = %s, want weak", tiers["a"])
	}
}

func TestClassify_OverrideBeatsAuto(t *testing.T) {
	overrides := map[string]domain.Tier{
		"a":      domain.TierWeak, // qualified and top-ranked, still overridden
		"rookie": domain.TierStrong,
	}
	tiers := Classify(board(10), overrides)

	if tiers["a"] != domain.TierWeak {
		t.Errorf("override on qualified player ignored: got %s", tiers["a"])
	}
	if tiers["rookie"] != domain.TierStrong {
		t.Errorf("override on rookie ignored: got %s", tiers["rookie"])
	}
}

func TestRosterValue(t *testing.T) {
	tiers := map[string]domain.Tier{
		"s": domain.TierStrong,
		"w": domain.TierWeak,
		"m": domain.TierAverage,
	}

	value, ok := RosterValue([]string{"s", "m", "w"}, tiers)
	if value != 0 || !ok {
		t.Errorf("balanced roster = %d classified=%v, want 0/true", value, ok)
	}

	value, ok = RosterValue([]string{"s", "unknown"}, tiers)
	if value != 1 || ok {
		t.Errorf("roster with unclassified = %d classified=%v, want 1/false", value, ok)
	}
}

func TestAssess(t *testing.T) {
	tiers := map[string]domain.Tier{
		"s1": domain.TierStrong, "s2": domain.TierStrong,
		"m1": domain.TierAverage, "m2": domain.TierAverage,
		"w1": domain.TierWeak,
	}

	cases := []struct {
		name       string
		winners    []string
		losers     []string
		wantComp    float64
		wantInvalid bool
	}{
		{name: "balanced, nothing owed", winners: []string{"m1"}, losers: []string{"m2"}},
		{name: "one point gap compensates losers", winners: []string{"s1"}, losers: []string{"m1"}, wantComp: 0.5},
		{name: "two point gap voids the match", winners: []string{"s1", "s2"}, losers: []string{"m1", "m2"}, wantInvalid: true},
		{name: "stronger side losing owes nothing", winners: []string{"w1"}, losers: []string{"s1"}},
		{name: "unclassified player disables the rules", winners: []string{"s1", "nobody"}, losers: []string{"w1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Assess(tc.winners, tc.losers, tiers)
			if a.Compensation != tc.wantComp {
				t.Errorf("compensation = %v, want %v", a.Compensation, tc.wantComp)
			}
			if a.Invalid != tc.wantInvalid {
				t.Errorf("invalid = %v, want %v", a.Invalid, tc.wantInvalid)
			}
		})
	}
}
