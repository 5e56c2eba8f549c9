package cli

import (
	"github.com/spf13/cobra"
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Assign the chronological train/test split",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Split(cmd.Context())
	},
}
