// scorectl is a terminal viewer for a running scoreboard server: it fetches
// the JSON API and renders leaderboard, player and match tables.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"dota-scoreboard/internal/domain"
)

var serverAddr string

var rootCmd = &cobra.Command{
	Use:   "scorectl",
	Short: "Dota2 scoreboard viewer",
	Long:  "Query a running scoreboard server and render leaderboard, player and match tables.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "scoreboard server address")

	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(matchesCmd)
}

// fetch GETs path from the server and decodes the JSON body into out.
func fetch(path string, out any) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverAddr + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server returned %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newTable() *tablewriter.Table {
	return tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the score leaderboard",
	Args:  cobra.NoArgs,
	RunE:  runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	var players []domain.PlayerAggregate
	if err := fetch("/api/leaderboard", &players); err != nil {
		return err
	}
	if len(players) == 0 {
		fmt.Fprintln(os.Stdout, "No matches recorded yet.")
		return nil
	}

	t := newTable()
	t.Header("RANK", "PLAYER", "SCORE", "GAMES", "W", "L", "WIN%", "MVP", "SVP", "ZOMBIE", "TIER")
	for _, p := range players {
		t.Append(
			fmt.Sprintf("%d", p.Rank),
			p.Name,
			fmt.Sprintf("%.1f", p.TotalScore),
			fmt.Sprintf("%d", p.MatchesPlayed),
			fmt.Sprintf("%d", p.Wins),
			fmt.Sprintf("%d", p.Losses),
			fmt.Sprintf("%.0f%%", p.WinRate*100),
			fmt.Sprintf("%d", p.TagCounts[domain.TagMVP]),
			fmt.Sprintf("%d", p.TagCounts[domain.TagSVP]),
			fmt.Sprintf("%d", p.TagCounts[domain.TagZombie]),
			string(p.Tier),
		)
	}
	t.Render()
	return nil
}

var playerCmd = &cobra.Command{
	Use:   "player <name>",
	Short: "Show one player's statistics and relationships",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlayer,
}

func runPlayer(cmd *cobra.Command, args []string) error {
	var p domain.PlayerAggregate
	if err := fetch("/api/player/"+args[0], &p); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\n=== %s ===\n\n", p.Name)
	fmt.Fprintf(os.Stdout, "  Rank    : #%d\n", p.Rank)
	fmt.Fprintf(os.Stdout, "  Score   : %.1f\n", p.TotalScore)
	fmt.Fprintf(os.Stdout, "  Record  : %d-%d over %d games (%.0f%%)\n",
		p.Wins, p.Losses, p.MatchesPlayed, p.WinRate*100)
	fmt.Fprintf(os.Stdout, "  Honors  : MVP %d, SVP %d, Zombie %d\n",
		p.TagCounts[domain.TagMVP], p.TagCounts[domain.TagSVP], p.TagCounts[domain.TagZombie])
	if p.Tier != domain.TierUnclassified {
		source := "manual"
		if p.TierIsAuto {
			source = "auto"
		}
		fmt.Fprintf(os.Stdout, "  Tier    : %s (%s)\n", p.Tier, source)
	}

	if len(p.Relationships) == 0 {
		return nil
	}
	fmt.Fprintf(os.Stdout, "\n--- Relationships ---\n\n")
	t := newTable()
	t.Header("PLAYER", "TOGETHER", "WON TOGETHER", "AGAINST", "WON AGAINST")
	for name, rel := range p.Relationships {
		t.Append(
			name,
			fmt.Sprintf("%d", rel.GamesAsTeammate),
			fmt.Sprintf("%d", rel.WinsAsTeammate),
			fmt.Sprintf("%d", rel.GamesAsOpponent),
			fmt.Sprintf("%d", rel.WinsAsOpponent),
		)
	}
	t.Render()
	return nil
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List recorded matches, newest first",
	Args:  cobra.NoArgs,
	RunE:  runMatches,
}

func runMatches(cmd *cobra.Command, args []string) error {
	var matches []domain.MatchRecord
	if err := fetch("/api/matches", &matches); err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No matches recorded yet.")
		return nil
	}

	t := newTable()
	t.Header("ID", "DATE", "WINNER", "RADIANT", "DIRE", "NOTE")
	for _, m := range matches {
		note := ""
		if m.Invalid {
			note = "invalid"
		} else if m.Compensation > 0 {
			note = fmt.Sprintf("+%.1f comp", m.Compensation)
		}
		t.Append(
			m.ID,
			m.RecordedAt.Format("2006-01-02 15:04"),
			string(m.WinningTeam),
			sideNames(&m, domain.TeamRadiant),
			sideNames(&m, domain.TeamDire),
			note,
		)
	}
	t.Render()
	return nil
}

func sideNames(m *domain.MatchRecord, team domain.Team) string {
	var names []string
	for _, e := range m.TeamRoster(team) {
		names = append(names, e.Name)
	}
	return strings.Join(names, ", ")
}
