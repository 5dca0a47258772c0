package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/store"
)

var (
	addImportance float64
	addTags       []string
	addCategory   string
	addWhen       string
)

var addCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Log a memory entry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().Float64Var(&addImportance, "importance", 0.5, "importance in [0,1]")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag (repeatable)")
	addCmd.Flags().StringVar(&addCategory, "category", "", "entry category")
	addCmd.Flags().StringVar(&addWhen, "when", "", "start time (RFC 3339), defaults to now")
}

func runAdd(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	if addWhen != "" {
		start, err = time.Parse(time.RFC3339, addWhen)
		if err != nil {
			return fmt.Errorf("parse --when: %w", err)
		}
	}

	entry := store.Entry{
		Content:    strings.Join(args, " "),
		StartTime:  start,
		Importance: addImportance,
		Tags:       addTags,
		Category:   addCategory,
	}

	if err := db.InsertEntry(&entry); err != nil {
		return err
	}

	fmt.Printf("logged %s\n", entry.ID)
	return nil
}
