package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"market-align/internal/app"
)

var (
	processFrom    string
	processTo      string
	processForce   bool
	processLimit   int
	processEventID string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Align pending events in one batch run",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ProcessOptions{
			Force:   processForce,
			Limit:   processLimit,
			EventID: processEventID,
		}

		if processFrom != "" {
			from, err := time.Parse(time.RFC3339, processFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}
		if processTo != "" {
			to, err := time.Parse(time.RFC3339, processTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}
		if opts.From != nil && opts.To != nil && !opts.From.Before(*opts.To) {
			return fmt.Errorf("--from must be before --to")
		}

		return getApp().Process(cmd.Context(), opts)
	},
}

func init() {
	processCmd.Flags().StringVar(&processFrom, "from", "", "Only events published at or after this RFC3339 timestamp")
	processCmd.Flags().StringVar(&processTo, "to", "", "Only events published before this RFC3339 timestamp")
	processCmd.Flags().BoolVar(&processForce, "force", false, "Reprocess events regardless of status")
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "Maximum number of events to process (0 = no limit)")
	processCmd.Flags().StringVar(&processEventID, "event", "", "Process a single event by id")
}
