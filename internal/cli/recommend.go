package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var recommendMax int

var recommendCmd = &cobra.Command{
	Use:   "recommend [query]",
	Short: "Recommend entries for a query using strategy fusion",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecommend,
}

func init() {
	recommendCmd.Flags().IntVar(&recommendMax, "max", 5, "max results")
}

func runRecommend(cmd *cobra.Command, args []string) error {
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

	results := recommender.Recommend(cmd.Context(), query, entries, recommendMax, nil)
	if len(results) == 0 {
		fmt.Println("no entries")
		return nil
	}

	for _, r := range results {
		fmt.Printf("%.3f  %s  %s\n", r.Score, r.StartTime.Format("2006-01-02"), r.Content)
	}
	return nil
}
