package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"dota-scoreboard/internal/config"
	"dota-scoreboard/internal/domain"
	"dota-scoreboard/internal/ocr"
	"dota-scoreboard/internal/service"
)

// memMatchStore is an in-memory MatchStore for handler tests.
type memMatchStore struct {
	records []domain.MatchRecord
}

func (m *memMatchStore) Insert(_ context.Context, rec *domain.MatchRecord) error {
	m.records = append(m.records, *rec)
	return nil
}

func (m *memMatchStore) Replace(_ context.Context, rec *domain.MatchRecord) error {
	for i := range m.records {
		if m.records[i].ID == rec.ID {
			m.records[i] = *rec
			return nil
		}
	}
	return &domain.NotFoundError{Kind: "match", Key: rec.ID}
}

func (m *memMatchStore) Delete(_ context.Context, id string) error {
	for i := range m.records {
		if m.records[i].ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return &domain.NotFoundError{Kind: "match", Key: id}
}

func (m *memMatchStore) GetByID(_ context.Context, id string) (*domain.MatchRecord, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, &domain.NotFoundError{Kind: "match", Key: id}
}

func (m *memMatchStore) ListAll(_ context.Context) ([]domain.MatchRecord, error) {
	out := make([]domain.MatchRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

type memTierStore struct {
	overrides map[string]domain.Tier
}

func (m *memTierStore) Set(_ context.Context, name string, tier domain.Tier) error {
	m.overrides[name] = tier
	return nil
}

func (m *memTierStore) Remove(_ context.Context, name string) error {
	if _, ok := m.overrides[name]; !ok {
		return &domain.NotFoundError{Kind: "player", Key: name}
	}
	delete(m.overrides, name)
	return nil
}

func (m *memTierStore) All(_ context.Context) (map[string]domain.Tier, error) {
	out := make(map[string]domain.Tier, len(m.overrides))
	for k, v := range m.overrides {
		out[k] = v
	}
	return out, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{UploadDir: t.TempDir()}
	logger := zerolog.Nop()

	stats := service.NewStatsService(&memMatchStore{}, &memTierStore{overrides: map[string]domain.Tier{}}, logger)
	if err := stats.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	srv := New(stats, ocr.NewClient(cfg, logger), cfg, logger)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

const matchBody = `{
	"winner": "radiant",
	"radiant_players": [{"name": "Alice"}],
	"dire_players": [{"name": "Bob", "tags": ["SVP"]}]
}`

func TestSubmitMatchAndLeaderboard(t *testing.T) {
	ts := newTestServer(t)

	var created struct {
		MatchID string `json:"match_id"`
	}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/match", matchBody, &created); status != http.StatusCreated {
		t.Fatalf("POST /api/match = %d, want 201", status)
	}
	if created.MatchID == "" {
		t.Fatal("no match_id in response")
	}

	var leaderboard []domain.PlayerAggregate
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/leaderboard", "", &leaderboard); status != http.StatusOK {
		t.Fatalf("GET /api/leaderboard = %d, want 200", status)
	}
	if len(leaderboard) != 2 {
		t.Fatalf("leaderboard has %d players, want 2", len(leaderboard))
	}
	if leaderboard[0].Name != "Alice" || leaderboard[0].TotalScore != 1.0 {
		t.Errorf("top entry = %s %.1f, want Alice 1.0", leaderboard[0].Name, leaderboard[0].TotalScore)
	}
	if leaderboard[1].Name != "Bob" || leaderboard[1].TotalScore != 0.0 {
		t.Errorf("second entry = %s %.1f, want Bob 0.0", leaderboard[1].Name, leaderboard[1].TotalScore)
	}
}

func TestDeleteMatchEmptiesLeaderboard(t *testing.T) {
	ts := newTestServer(t)

	var created struct {
		MatchID string `json:"match_id"`
	}
	doJSON(t, http.MethodPost, ts.URL+"/api/match", matchBody, &created)

	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/match/"+created.MatchID, "", nil); status != http.StatusOK {
		t.Fatalf("DELETE = %d, want 200", status)
	}

	var leaderboard []domain.PlayerAggregate
	doJSON(t, http.MethodGet, ts.URL+"/api/leaderboard", "", &leaderboard)
	if len(leaderboard) != 0 {
		t.Errorf("leaderboard still has %d entries after deleting the only match", len(leaderboard))
	}
}

func TestPlayerDetailAndRelationships(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/match", matchBody, nil)

	var bob domain.PlayerAggregate
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/player/Bob", "", &bob); status != http.StatusOK {
		t.Fatalf("GET player = %d, want 200", status)
	}
	if bob.Losses != 1 || bob.TagCounts[domain.TagSVP] != 1 {
		t.Errorf("Bob = %+v, want 1 loss and 1 SVP", bob)
	}

	var rels map[string]domain.Relationship
	doJSON(t, http.MethodGet, ts.URL+"/api/player/Alice/relationships", "", &rels)
	if rel := rels["Bob"]; rel.GamesAsOpponent != 1 || rel.WinsAsOpponent != 1 {
		t.Errorf("Alice vs Bob = %+v, want 1 game 1 win as opponent", rel)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)

	var apiErr struct {
		Error string `json:"error"`
	}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/match", `{"winner":"observers"}`, &apiErr); status != http.StatusBadRequest {
		t.Errorf("invalid winner = %d, want 400", status)
	}
	if apiErr.Error == "" {
		t.Error("error body missing")
	}

	if status := doJSON(t, http.MethodGet, ts.URL+"/api/player/ghost", "", &apiErr); status != http.StatusNotFound {
		t.Errorf("unknown player = %d, want 404", status)
	}
	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/match/ghost", "", &apiErr); status != http.StatusNotFound {
		t.Errorf("unknown match = %d, want 404", status)
	}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/match", `not json`, &apiErr); status != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", status)
	}
}

func TestTierEndpoints(t *testing.T) {
	ts := newTestServer(t)

	if status := doJSON(t, http.MethodPut, ts.URL+"/api/tier/Alice", `{"tier":"strong"}`, nil); status != http.StatusOK {
		t.Fatalf("PUT tier = %d, want 200", status)
	}
	if status := doJSON(t, http.MethodPut, ts.URL+"/api/tier/Alice", `{"tier":"legendary"}`, nil); status != http.StatusBadRequest {
		t.Errorf("bad tier label = %d, want 400", status)
	}

	var tiers map[string]domain.Tier
	doJSON(t, http.MethodGet, ts.URL+"/api/tiers", "", &tiers)
	if tiers["Alice"] != domain.TierStrong {
		t.Errorf("tiers = %v, want Alice strong", tiers)
	}

	var single struct {
		Tier domain.Tier `json:"tier"`
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/tier/Alice", "", &single); status != http.StatusOK {
		t.Errorf("GET tier = %d, want 200", status)
	}
	if single.Tier != domain.TierStrong {
		t.Errorf("GET tier = %q, want strong", single.Tier)
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/tier/ghost", "", nil); status != http.StatusNotFound {
		t.Errorf("GET unknown tier = %d, want 404", status)
	}

	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/tier/Alice", "", nil); status != http.StatusOK {
		t.Errorf("DELETE tier = %d, want 200", status)
	}
	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/tier/Alice", "", nil); status != http.StatusNotFound {
		t.Errorf("DELETE missing tier = %d, want 404", status)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, http.MethodPut, ts.URL+"/api/tier/s", `{"tier":"strong"}`, nil)
	doJSON(t, http.MethodPut, ts.URL+"/api/tier/w", `{"tier":"weak"}`, nil)

	var preview service.BalancePreview
	status := doJSON(t, http.MethodPost, ts.URL+"/api/balance", `{"radiant":["s"],"dire":["w"]}`, &preview)
	if status != http.StatusOK {
		t.Fatalf("POST balance = %d, want 200", status)
	}
	if preview.Difference != 2 || preview.Warning == "" {
		t.Errorf("preview = %+v, want difference 2 with warning", preview)
	}
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/match", matchBody, nil)

	resp, err := http.Get(ts.URL + "/api/export")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 3 { // header + two players
		t.Fatalf("export has %d lines, want 3:\n%s", len(lines), body)
	}
	if !strings.Contains(lines[1], "Alice") {
		t.Errorf("first data row = %q, want Alice on top", lines[1])
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var status struct {
		Status       string `json:"status"`
		OCRAvailable bool   `json:"ocr_available"`
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/status", "", &status); code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", code)
	}
	if status.Status != "running" {
		t.Errorf("status = %q, want running", status.Status)
	}
	if status.OCRAvailable {
		t.Error("OCR should be unavailable without an API key")
	}
}
