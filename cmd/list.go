package cmd

import (
	"github.com/spf13/cobra"

	"sigscan.dev/pkg/sigscan/internal/domain"
	m "sigscan.dev/pkg/sigscan/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <directory>",
		Short: "List the files a scan would cover",
		Long:  listLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.List(cmd.Context(), domain.ListArgs{
				Root:     m.Path(args[0]),
				Discover: discoverOptionsFromConfig(),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
