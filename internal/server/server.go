package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dota-scoreboard/internal/config"
	"dota-scoreboard/internal/constants"
	"dota-scoreboard/internal/domain"
	"dota-scoreboard/internal/ocr"
	"dota-scoreboard/internal/service"
)

var allowedUploadExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// Server exposes the statistics service and the OCR prefill over a JSON HTTP
// API.
type Server struct {
	stats  *service.StatsService
	ocr    *ocr.Client
	cfg    *config.Config
	logger zerolog.Logger
}

func New(stats *service.StatsService, ocrClient *ocr.Client, cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{stats: stats, ocr: ocrClient, cfg: cfg, logger: logger}
}

// Routes registers every API handler on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/upload", s.handleUpload)

	mux.HandleFunc("POST /api/match", s.handleSubmitMatch)
	mux.HandleFunc("PUT /api/match/{id}", s.handleReplaceMatch)
	mux.HandleFunc("DELETE /api/match/{id}", s.handleDeleteMatch)
	mux.HandleFunc("GET /api/matches", s.handleListMatches)

	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/players", s.handleLeaderboard)
	mux.HandleFunc("GET /api/player/{name}", s.handlePlayerDetail)
	mux.HandleFunc("GET /api/player/{name}/relationships", s.handleRelationships)

	mux.HandleFunc("POST /api/balance", s.handleBalance)
	mux.HandleFunc("GET /api/tiers", s.handleTiers)
	mux.HandleFunc("GET /api/tier/{name}", s.handleGetTier)
	mux.HandleFunc("PUT /api/tier/{name}", s.handleSetTier)
	mux.HandleFunc("DELETE /api/tier/{name}", s.handleRemoveTier)

	mux.HandleFunc("GET /api/export", s.handleExport)

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "running",
		"ocr_available": s.ocr.Available(),
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

// handleUpload stores a screenshot and, when the OCR backend is configured,
// returns its best-effort match prefill. OCR failures are soft: the upload
// still succeeds and the client falls back to an empty manual form.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.Validationf("missing file upload: %v", err))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExts[ext] {
		writeError(w, domain.Validationf("unsupported file type %q", ext))
		return
	}

	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), filepath.Base(header.Filename))
	path := filepath.Join(s.cfg.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		writeError(w, fmt.Errorf("store upload: %w", err))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, fmt.Errorf("store upload: %w", err))
		return
	}
	dst.Close()

	resp := map[string]any{
		"screenshot_ref": name,
		"ocr_available":  s.ocr.Available(),
		"parsed":         false,
	}
	if !s.ocr.Available() {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.OCRTimeout)
	defer cancel()
	result, err := s.ocr.ParseScreenshot(ctx, path)
	if err != nil {
		s.logger.Warn().Err(err).Str("screenshot", name).Msg("OCR failed, falling back to manual entry")
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp["parsed"] = true
	resp["prefill"] = service.MatchSubmission{
		Winner:        result.Winner,
		Radiant:       guessesToInputs(result.Radiant),
		Dire:          guessesToInputs(result.Dire),
		ScreenshotRef: name,
	}
	writeJSON(w, http.StatusOK, resp)
}

func guessesToInputs(guesses []ocr.RosterGuess) []service.PlayerInput {
	inputs := make([]service.PlayerInput, 0, len(guesses))
	for _, g := range guesses {
		inputs = append(inputs, service.PlayerInput{Name: g.Name, Tags: g.Tags})
	}
	return inputs
}

func (s *Server) handleSubmitMatch(w http.ResponseWriter, r *http.Request) {
	var sub service.MatchSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, domain.Validationf("malformed JSON body: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()
	id, err := s.stats.RecordMatch(ctx, &sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"match_id": id})
}

func (s *Server) handleReplaceMatch(w http.ResponseWriter, r *http.Request) {
	var sub service.MatchSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, domain.Validationf("malformed JSON body: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()
	if err := s.stats.ReplaceMatch(ctx, r.PathValue("id"), &sub); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"match_id": r.PathValue("id")})
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()
	if err := s.stats.DeleteMatch(ctx, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": r.PathValue("id")})
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches := s.stats.Matches()
	if matches == nil {
		matches = []domain.MatchRecord{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	leaderboard := s.stats.Leaderboard()
	if leaderboard == nil {
		leaderboard = []*domain.PlayerAggregate{}
	}
	writeJSON(w, http.StatusOK, leaderboard)
}

func (s *Server) handlePlayerDetail(w http.ResponseWriter, r *http.Request) {
	agg, err := s.stats.PlayerDetail(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) {
	rels, err := s.stats.Relationships(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Radiant []string `json:"radiant"`
		Dire    []string `json:"dire"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Validationf("malformed JSON body: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, s.stats.PreviewBalance(req.Radiant, req.Dire))
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Tiers())
}

func (s *Server) handleGetTier(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	tier, ok := s.stats.Tiers()[name]
	if !ok {
		writeError(w, &domain.NotFoundError{Kind: "player", Key: name})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player": name, "tier": tier})
}

func (s *Server) handleSetTier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Validationf("malformed JSON body: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()
	if err := s.stats.SetTierOverride(ctx, r.PathValue("name"), req.Tier); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player": r.PathValue("name"), "tier": req.Tier})
}

func (s *Server) handleRemoveTier(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()
	if err := s.stats.RemoveTierOverride(ctx, r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": r.PathValue("name")})
}

// handleExport streams the leaderboard as CSV, one row per player.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"rank", "player", "matches", "wins", "losses", "score", "win_rate", "mvp", "svp", "zombie", "tier"})
	for _, agg := range s.stats.Leaderboard() {
		_ = cw.Write([]string{
			strconv.Itoa(agg.Rank),
			agg.Name,
			strconv.Itoa(agg.MatchesPlayed),
			strconv.Itoa(agg.Wins),
			strconv.Itoa(agg.Losses),
			strconv.FormatFloat(agg.TotalScore, 'f', 1, 64),
			fmt.Sprintf("%.1f%%", agg.WinRate*100),
			strconv.Itoa(agg.TagCounts[domain.TagMVP]),
			strconv.Itoa(agg.TagCounts[domain.TagSVP]),
			strconv.Itoa(agg.TagCounts[domain.TagZombie]),
			string(agg.Tier),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Error().Err(err).Msg("CSV export failed mid-stream")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the domain error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
