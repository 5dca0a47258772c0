package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var relatedLimit int

var relatedCmd = &cobra.Command{
	Use:   "related [query]",
	Short: "Find entries related to a query, ranked by relevance",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRelated,
}

func init() {
	relatedCmd.Flags().IntVar(&relatedLimit, "limit", 5, "max results")
}

func runRelated(cmd *cobra.Command, args []string) error {
	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	query := strings.Join(args, " ")
	recommender := buildRecommender(cfg, db)

	entries, err := db.ListRecent(0)
	if err != nil {
		return err
	}

	freq, err := db.Frequencies(entries)
	if err != nil {
		freq = map[string]int{}
	}

	results := recommender.Relevance().FindRelated(cmd.Context(), entries, query, freq, relatedLimit, time.Now())
	if len(results) == 0 {
		fmt.Println("no entries")
		return nil
	}

	for _, r := range results {
		if err := db.TouchEntry(r.ID); err != nil {
			log.Warn("record entry access failed", "id", r.ID, "err", err)
		}
		fmt.Printf("%.3f  %s  %s\n", r.Score, r.StartTime.Format("2006-01-02"), r.Content)
	}
	return nil
}
