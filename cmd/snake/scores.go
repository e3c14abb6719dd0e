package main

import (
	"fmt"
	"os"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/netsnake/internal/client"
	"github.com/vovakirdan/netsnake/internal/storage"
)

var (
	flagLimit       int
	flagScoresMode  string
	flagInteractive bool
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show the best finished games",
	Long: `Display the best games recorded by the server, ranked by fruits eaten
and then by time.

Examples:
  snake scores
  snake scores --mode timed --limit 20
  snake scores --interactive
  snake scores --db ./results.db`,
	Run: runScores,
}

func init() {
	scoresCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of results to show")
	scoresCmd.Flags().StringVar(&flagScoresMode, "mode", "", "Only show one mode: standard, timed")
	scoresCmd.Flags().BoolVarP(&flagInteractive, "interactive", "i", false, "Browse results in a table")
}

func runScores(_ *cobra.Command, _ []string) {
	modeFilter := ""
	if flagScoresMode != "" {
		mode, err := parseMode(flagScoresMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		modeFilter = mode.String()
	}

	// Open result storage
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening results database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if flagInteractive {
		width, height := 80, 24
		if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
			width = w
			height = h
		}
		p := tea.NewProgram(client.NewScoreboardModel(store, width, height), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running scoreboard: %v\n", err)
		}
		return
	}

	results, err := store.TopResults(modeFilter, flagLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving results: %v\n", err)
		return
	}

	title := "all modes"
	if modeFilter != "" {
		title = modeFilter
	}
	fmt.Printf("Best games - %s\n", title)
	fmt.Println()

	if len(results) == 0 {
		fmt.Println("No games recorded yet.")
		fmt.Println()
		fmt.Println("Start a server with 'snake serve' and play with 'snake play'!")
		return
	}

	// Print header
	fmt.Printf("  %-4s  %-6s  %-6s  %-8s  %-9s  %-10s  %s\n", "Rank", "Fruits", "Time", "Mode", "World", "Ended", "Date")
	fmt.Printf("  %-4s  %-6s  %-6s  %-8s  %-9s  %-10s  %s\n", "----", "------", "----", "----", "-----", "-----", "----")

	for i, r := range results {
		dateStr := r.CreatedAt.Format("2006-01-02 15:04")
		fmt.Printf("  %-4d  %-6d  %-6s  %-8s  %-9s  %-10s  %s\n",
			i+1, r.Fruits, fmt.Sprintf("%ds", r.ElapsedSecs), r.Mode, r.World, r.EndReason, dateStr)
	}

	// Show totals
	stats, err := store.Stats()
	if err != nil {
		return
	}
	fmt.Println()
	fmt.Printf("Games: %d  Best: %d  Average: %.1f  Played: %ds\n",
		stats.Sessions, stats.BestFruits, stats.AvgFruits, stats.PlaySecs)

	reasons := make([]string, 0, len(stats.ByReason))
	for reason := range stats.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Printf("  %-10s %d\n", reason, stats.ByReason[reason])
	}
}
