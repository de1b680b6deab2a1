package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sigscan.dev/pkg/sigscan/internal/domain"
	m "sigscan.dev/pkg/sigscan/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View the most recent scan report",
		Long:  "View the most recent scan report from a reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reportsPath := m.Path(viper.GetString(outputFlagName))
			return workflow.View(cmd.Context(), domain.ViewArgs{Reports: reportsPath})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
