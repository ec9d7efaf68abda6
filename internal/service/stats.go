package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dota-scoreboard/internal/domain"
	"dota-scoreboard/internal/rank"
	"dota-scoreboard/internal/scoring"
)

// MatchStore is the persistence surface the service needs for match records.
type MatchStore interface {
	Insert(ctx context.Context, match *domain.MatchRecord) error
	Replace(ctx context.Context, match *domain.MatchRecord) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.MatchRecord, error)
	ListAll(ctx context.Context) ([]domain.MatchRecord, error)
}

// TierStore persists manual tier overrides.
type TierStore interface {
	Set(ctx context.Context, name string, tier domain.Tier) error
	Remove(ctx context.Context, name string) error
	All(ctx context.Context) (map[string]domain.Tier, error)
}

// View is one published version of all derived state. Views are immutable:
// every mutation builds a fresh one from the full match history and swaps it
// in atomically, so readers never see a half-updated aggregate and a failed
// rebuild leaves the previous view in effect.
type View struct {
	Snapshot  *scoring.Snapshot
	Matches   []domain.MatchRecord // newest first, for listing
	Overrides map[string]domain.Tier
	Tiers     map[string]domain.Tier // effective tier per player
}

// PlayerInput is one roster slot as submitted by a client. Tags are raw
// labels; unknown ones are dropped at this boundary.
type PlayerInput struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// MatchSubmission is a match result as submitted by a client.
type MatchSubmission struct {
	Winner        string        `json:"winner"`
	Radiant       []PlayerInput `json:"radiant_players"`
	Dire          []PlayerInput `json:"dire_players"`
	ScreenshotRef string        `json:"screenshot_ref,omitempty"`
}

// BalancePreview reports roster strength before a match is played.
type BalancePreview struct {
	RadiantValue  int    `json:"radiant_value"`
	DireValue     int    `json:"dire_value"`
	Difference    int    `json:"difference"`
	AllClassified bool   `json:"all_classified"`
	Warning       string `json:"warning,omitempty"`
}

// StatsService owns the match record store and the derived statistics built
// from it. Mutations are serialized behind a single mutex and each one ends
// with a full recompute; reads go through the last published immutable view
// without locking.
type StatsService struct {
	matches MatchStore
	tiers   TierStore
	logger  zerolog.Logger

	mu   sync.Mutex // serializes store mutation + recompute
	view atomic.Pointer[View]
}

func NewStatsService(matches MatchStore, tiers TierStore, logger zerolog.Logger) *StatsService {
	s := &StatsService{matches: matches, tiers: tiers, logger: logger}
	s.view.Store(&View{
		Snapshot:  &scoring.Snapshot{Players: map[string]*domain.PlayerAggregate{}},
		Overrides: map[string]domain.Tier{},
		Tiers:     map[string]domain.Tier{},
	})
	return s
}

// Load rebuilds derived state from the store. Called once at startup; the
// store is the only persisted state and fully determines every view.
func (s *StatsService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked(ctx)
}

// recomputeLocked rebuilds and publishes a fresh view. Callers hold s.mu. On
// any error the previously published view stays in place.
func (s *StatsService) recomputeLocked(ctx context.Context) error {
	var (
		records   []domain.MatchRecord
		overrides map[string]domain.Tier
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.matches.ListAll(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.tiers.All(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to load store for recompute")
		return fmt.Errorf("load store: %w", err)
	}

	snapshot, err := scoring.Aggregate(records)
	if err != nil {
		s.logger.Error().Err(err).Msg("recompute aborted, keeping previous view")
		return err
	}

	tiers := rank.Classify(snapshot.Leaderboard, overrides)
	for _, agg := range snapshot.Leaderboard {
		agg.Tier = tiers[agg.Name]
		agg.TierIsAuto = rank.IsAuto(agg, overrides)
	}

	newestFirst := make([]domain.MatchRecord, len(records))
	for i := range records {
		newestFirst[len(records)-1-i] = records[i]
	}

	s.view.Store(&View{
		Snapshot:  snapshot,
		Matches:   newestFirst,
		Overrides: overrides,
		Tiers:     tiers,
	})
	s.logger.Info().
		Int("matches", len(records)).
		Int("players", len(snapshot.Players)).
		Msg("derived state recomputed")
	return nil
}

// RecordMatch validates and stores a submission, recomputes derived state and
// returns the assigned match id. Validation failures happen before any store
// mutation.
func (s *StatsService) RecordMatch(ctx context.Context, sub *MatchSubmission) (string, error) {
	winner, roster, err := buildRoster(sub)
	if err != nil {
		return "", err
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate match id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := &domain.MatchRecord{
		ID:            id,
		RecordedAt:    time.Now(),
		WinningTeam:   winner,
		Roster:        roster,
		ScreenshotRef: sub.ScreenshotRef,
	}
	s.applyBalance(record)

	if err := s.matches.Insert(ctx, record); err != nil {
		return "", err
	}
	if err := s.recomputeLocked(ctx); err != nil {
		return "", err
	}

	s.logger.Info().
		Str("match_id", id).
		Str("winner", string(winner)).
		Int("roster", len(roster)).
		Float64("compensation", record.Compensation).
		Bool("invalid", record.Invalid).
		Msg("match recorded")
	return id, nil
}

// ReplaceMatch swaps the record stored under id for a freshly validated one,
// keeping the original id and timestamp. Edits are whole-record replacements;
// stored records are never patched.
func (s *StatsService) ReplaceMatch(ctx context.Context, id string, sub *MatchSubmission) error {
	winner, roster, err := buildRoster(sub)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return err
	}

	record := &domain.MatchRecord{
		ID:            existing.ID,
		RecordedAt:    existing.RecordedAt,
		WinningTeam:   winner,
		Roster:        roster,
		ScreenshotRef: sub.ScreenshotRef,
	}
	if record.ScreenshotRef == "" {
		record.ScreenshotRef = existing.ScreenshotRef
	}
	s.applyBalance(record)

	if err := s.matches.Replace(ctx, record); err != nil {
		return err
	}
	if err := s.recomputeLocked(ctx); err != nil {
		return err
	}

	s.logger.Info().Str("match_id", id).Msg("match replaced")
	return nil
}

// DeleteMatch removes a stored match and recomputes everything that was
// derived from it.
func (s *StatsService) DeleteMatch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.matches.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.recomputeLocked(ctx); err != nil {
		return err
	}

	s.logger.Info().Str("match_id", id).Msg("match deleted")
	return nil
}

// applyBalance stamps the record with the roster-balance outcome under the
// current tier classification. The result is persisted with the record so
// later recomputes do not depend on tier state that has moved on since.
func (s *StatsService) applyBalance(record *domain.MatchRecord) {
	tiers := s.view.Load().Tiers
	winners := rosterNames(record, record.WinningTeam)
	losers := rosterNames(record, record.WinningTeam.Opponent())

	assessment := rank.Assess(winners, losers, tiers)
	record.Compensation = assessment.Compensation
	record.Invalid = assessment.Invalid
}

func rosterNames(record *domain.MatchRecord, team domain.Team) []string {
	var names []string
	for _, e := range record.TeamRoster(team) {
		names = append(names, e.Name)
	}
	return names
}

// buildRoster validates a submission and converts it into a winning team and
// roster entries. Empty names (common in OCR output) are dropped; unknown tag
// labels are filtered by ParseTags.
func buildRoster(sub *MatchSubmission) (domain.Team, []domain.PlayerEntry, error) {
	if sub == nil {
		return "", nil, domain.Validationf("empty submission")
	}
	winner, ok := domain.ParseTeam(sub.Winner)
	if !ok {
		return "", nil, domain.Validationf("unrecognized winning team %q", sub.Winner)
	}

	var roster []domain.PlayerEntry
	appendSide := func(inputs []PlayerInput, team domain.Team) {
		for _, in := range inputs {
			name := strings.TrimSpace(in.Name)
			if name == "" {
				continue
			}
			roster = append(roster, domain.PlayerEntry{
				Name: name,
				Team: team,
				Tags: domain.ParseTags(in.Tags),
			})
		}
	}
	appendSide(sub.Radiant, domain.TeamRadiant)
	appendSide(sub.Dire, domain.TeamDire)

	if len(roster) == 0 {
		return "", nil, domain.Validationf("roster is empty")
	}
	return winner, roster, nil
}

// Leaderboard returns all player aggregates in rank order from the last
// published view.
func (s *StatsService) Leaderboard() []*domain.PlayerAggregate {
	return s.view.Load().Snapshot.Leaderboard
}

// PlayerDetail returns one player's full aggregate, including relationships.
func (s *StatsService) PlayerDetail(name string) (*domain.PlayerAggregate, error) {
	agg, ok := s.view.Load().Snapshot.Players[name]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "player", Key: name}
	}
	return agg, nil
}

// Relationships returns a player's pairwise teammate/opponent table.
func (s *StatsService) Relationships(name string) (map[string]*domain.Relationship, error) {
	agg, err := s.PlayerDetail(name)
	if err != nil {
		return nil, err
	}
	return agg.Relationships, nil
}

// Matches lists all stored match records, newest first.
func (s *StatsService) Matches() []domain.MatchRecord {
	return s.view.Load().Matches
}

// Tiers returns the effective tier of every classified player.
func (s *StatsService) Tiers() map[string]domain.Tier {
	return s.view.Load().Tiers
}

// SetTierOverride stores a manual tier for a player and republishes.
func (s *StatsService) SetTierOverride(ctx context.Context, name, label string) error {
	tier, ok := domain.ParseTier(label)
	if !ok {
		return domain.Validationf("unrecognized tier %q", label)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Validationf("player name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tiers.Set(ctx, name, tier); err != nil {
		return err
	}
	return s.recomputeLocked(ctx)
}

// RemoveTierOverride drops a manual tier assignment.
func (s *StatsService) RemoveTierOverride(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tiers.Remove(ctx, name); err != nil {
		return err
	}
	return s.recomputeLocked(ctx)
}

// PreviewBalance rates two prospective rosters against the current tier
// classification, before the match is played.
func (s *StatsService) PreviewBalance(radiant, dire []string) BalancePreview {
	tiers := s.view.Load().Tiers

	radiantValue, radiantOK := rank.RosterValue(radiant, tiers)
	direValue, direOK := rank.RosterValue(dire, tiers)

	diff := radiantValue - direValue
	if diff < 0 {
		diff = -diff
	}
	preview := BalancePreview{
		RadiantValue:  radiantValue,
		DireValue:     direValue,
		Difference:    diff,
		AllClassified: radiantOK && direOK,
	}

	switch {
	case !preview.AllClassified:
		preview.Warning = "some players are unclassified; compensation rules are disabled"
	case diff >= 2:
		preview.Warning = fmt.Sprintf("roster gap of %d points: the result will be marked invalid", diff)
	case diff == 1:
		weaker := domain.TeamRadiant
		if direValue < radiantValue {
			weaker = domain.TeamDire
		}
		preview.Warning = fmt.Sprintf("roster gap of 1 point: each %s player gets +0.5 on a loss", weaker)
	}
	return preview
}
