package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var insightsDays int

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate patterns and connection insights over recent entries",
	RunE:  runInsights,
}

func init() {
	insightsCmd.Flags().IntVar(&insightsDays, "days", 30, "trailing window in days")
}

func runInsights(cmd *cobra.Command, args []string) error {
	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	recommender := buildRecommender(cfg, db)

	entries, err := db.ListRecent(0)
	if err != nil {
		return err
	}

	days := insightsDays
	if !cmd.Flags().Changed("days") && cfg.Engine.InsightWindowDays > 0 {
		days = cfg.Engine.InsightWindowDays
	}

	report := recommender.Insights(cmd.Context(), entries, days)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
