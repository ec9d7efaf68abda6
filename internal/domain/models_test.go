package domain

import (
	"reflect"
	"testing"
)

func TestParseTeam(t *testing.T) {
	cases := []struct {
		label  string
		want   Team
		wantOK bool
	}{
		{label: "radiant", want: TeamRadiant, wantOK: true},
		{label: "  Radiant ", want: TeamRadiant, wantOK: true},
		{label: "DIRE", want: TeamDire, wantOK: true},
		{label: "天辉", want: TeamRadiant, wantOK: true},
		{label: "夜魔", want: TeamDire, wantOK: true},
		{label: "observers", wantOK: false},
		{label: "", wantOK: false},
	}
	for _, tc := range cases {
		got, ok := ParseTeam(tc.label)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseTeam(%q) = %q/%v, want %q/%v", tc.label, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestTeamOpponent(t *testing.T) {
	if TeamRadiant.Opponent() != TeamDire || TeamDire.Opponent() != TeamRadiant {
		t.Error("Opponent must flip between the two sides")
	}
}

func TestParseTags(t *testing.T) {
	cases := []struct {
		name   string
		labels []string
		want   []Tag
	}{
		{name: "known tags pass", labels: []string{"MVP", "僵"}, want: []Tag{TagMVP, TagZombie}},
		{name: "unknown dropped silently", labels: []string{"MVP", "壕", "legend"}, want: []Tag{TagMVP}},
		{name: "duplicates collapse", labels: []string{"SVP", "SVP"}, want: []Tag{TagSVP}},
		{name: "whitespace trimmed", labels: []string{" MVP "}, want: []Tag{TagMVP}},
		{name: "case sensitive", labels: []string{"mvp"}, want: nil},
		{name: "empty in empty out", labels: nil, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTags(tc.labels)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseTags(%v) = %v, want %v", tc.labels, got, tc.want)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	for label, want := range map[string]Tier{
		"strong":  TierStrong,
		"Average": TierAverage,
		" weak ":  TierWeak,
	} {
		got, ok := ParseTier(label)
		if !ok || got != want {
			t.Errorf("ParseTier(%q) = %q/%v, want %q", label, got, ok, want)
		}
	}
	if _, ok := ParseTier("legendary"); ok {
		t.Error("unknown tier label must not parse")
	}
}

func TestTierValue(t *testing.T) {
	if TierStrong.Value() != 1 || TierWeak.Value() != -1 {
		t.Error("strong/weak must be worth +1/-1")
	}
	if TierAverage.Value() != 0 || TierUnclassified.Value() != 0 {
		t.Error("average and unclassified must be worth 0")
	}
}

func TestTeamRoster(t *testing.T) {
	m := &MatchRecord{Roster: []PlayerEntry{
		{Name: "a", Team: TeamRadiant},
		{Name: "b", Team: TeamDire},
		{Name: "c", Team: TeamRadiant},
	}}

	radiant := m.TeamRoster(TeamRadiant)
	if len(radiant) != 2 || radiant[0].Name != "a" || radiant[1].Name != "c" {
		t.Errorf("TeamRoster(radiant) = %v, want a, c in order", radiant)
	}
	if len(m.TeamRoster(TeamDire)) != 1 {
		t.Errorf("TeamRoster(dire) = %v, want just b", m.TeamRoster(TeamDire))
	}
}
