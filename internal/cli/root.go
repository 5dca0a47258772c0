package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "Personal memory log with relevance-ranked recall",
	Long:  "Daybook logs short memory entries and ranks them for recall, recommendation, and insight generation. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(insightsCmd)
}
