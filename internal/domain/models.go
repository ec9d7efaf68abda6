package domain

import (
	"strings"
	"time"
)

// Team is one of the two fixed sides of a match.
type Team string

const (
	TeamRadiant Team = "radiant"
	TeamDire    Team = "dire"
)

// Opponent returns the other side.
func (t Team) Opponent() Team {
	if t == TeamRadiant {
		return TeamDire
	}
	return TeamRadiant
}

func (t Team) Valid() bool {
	return t == TeamRadiant || t == TeamDire
}

// ParseTeam resolves a user-supplied team label. The Chinese labels are what
// the screenshot OCR produces.
func ParseTeam(label string) (Team, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "radiant", "天辉":
		return TeamRadiant, true
	case "dire", "夜魔":
		return TeamDire, true
	}
	return "", false
}

// Tag is a per-match honorific attached to a single roster entry.
// TagZombie keeps its original label "僵" on the wire.
type Tag string

const (
	TagMVP    Tag = "MVP"
	TagSVP    Tag = "SVP"
	TagZombie Tag = "僵"
)

// KnownTags is the closed set of recognized honorifics.
var KnownTags = []Tag{TagMVP, TagSVP, TagZombie}

// ParseTags filters a raw label list down to the closed tag set. Unrecognized
// labels are dropped; duplicates collapse to one. OCR output routinely
// contains honorifics we do not score, so this is a silent filter rather than
// a rejection.
func ParseTags(labels []string) []Tag {
	var tags []Tag
	for _, label := range labels {
		tag := Tag(strings.TrimSpace(label))
		if tag != TagMVP && tag != TagSVP && tag != TagZombie {
			continue
		}
		if !HasTag(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// HasTag reports whether tag is present in tags.
func HasTag(tags []Tag, tag Tag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PlayerEntry is one roster slot of a match. Name is the player's identity
// key for all aggregation: exact string, case-sensitive.
type PlayerEntry struct {
	Name string `json:"name"`
	Team Team   `json:"team"`
	Tags []Tag  `json:"tags"`
}

// MatchRecord is a single recorded game. Records are immutable once stored;
// an edit replaces the whole record under the same id.
//
// Compensation is the per-player bonus granted to the losing side when the
// winning roster was rated stronger at submission time. It is computed once
// on submission and persisted, so recomputing aggregates from stored records
// never depends on tier state that may have changed since.
type MatchRecord struct {
	ID            string        `json:"id"`
	RecordedAt    time.Time     `json:"recorded_at"`
	WinningTeam   Team          `json:"winning_team"`
	Roster        []PlayerEntry `json:"roster"`
	ScreenshotRef string        `json:"screenshot_ref,omitempty"`
	Compensation  float64       `json:"compensation,omitempty"`
	Invalid       bool          `json:"invalid,omitempty"`
}

// TeamRoster returns the entries on the given side, in roster order.
func (m *MatchRecord) TeamRoster(team Team) []PlayerEntry {
	var entries []PlayerEntry
	for _, e := range m.Roster {
		if e.Team == team {
			entries = append(entries, e)
		}
	}
	return entries
}

// Relationship is the pairwise record between one player and another, split
// by teammate and opponent context. Opponent games count symmetrically on
// both sides; opponent wins are credited only on the winner's row.
type Relationship struct {
	GamesAsTeammate int `json:"games_as_teammate"`
	WinsAsTeammate  int `json:"wins_as_teammate"`
	GamesAsOpponent int `json:"games_as_opponent"`
	WinsAsOpponent  int `json:"wins_as_opponent"`
}

// Tier is a player's handicap classification, used only for roster balance
// checks. Players reaching AutoClassifyGames are classified by score rank;
// below that a manual override applies, or the player stays unclassified.
type Tier string

const (
	TierStrong       Tier = "strong"
	TierAverage      Tier = "average"
	TierWeak         Tier = "weak"
	TierUnclassified Tier = ""
)

// Value is the tier's contribution to a roster's strength score.
func (t Tier) Value() int {
	switch t {
	case TierStrong:
		return 1
	case TierWeak:
		return -1
	default:
		return 0
	}
}

// ParseTier resolves a user-supplied tier label.
func ParseTier(label string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(label))) {
	case TierStrong:
		return TierStrong, true
	case TierAverage:
		return TierAverage, true
	case TierWeak:
		return TierWeak, true
	}
	return TierUnclassified, false
}

// PlayerAggregate is the fully derived view of one player. It exists iff the
// player appears in at least one stored match, and is rebuilt from scratch on
// every mutation — never persisted.
type PlayerAggregate struct {
	Name          string                   `json:"name"`
	TotalScore    float64                  `json:"total_score"`
	MatchesPlayed int                      `json:"matches_played"`
	Wins          int                      `json:"wins"`
	Losses        int                      `json:"losses"`
	WinRate       float64                  `json:"win_rate"`
	Rank          int                      `json:"rank"`
	TagCounts     map[Tag]int              `json:"tag_counts"`
	Tier          Tier                     `json:"tier,omitempty"`
	TierIsAuto    bool                     `json:"tier_is_auto,omitempty"`
	Relationships map[string]*Relationship `json:"relationships,omitempty"`
}
