package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a default sigscan.yaml configuration file",
		Long: `Create a sigscan.yaml in the current working directory holding the scan,
rule and logging defaults so they can be edited manually. An existing file is
never overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			if err := viper.SafeWriteConfigAs(targetPath); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cmd.Printf("Wrote %s\n", targetPath)
			cmd.Printf("Rules are read from the first usable path in %q\n", rulesPathsKey)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
