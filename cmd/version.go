package cmd

import (
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"sigscan.dev/pkg/sigscan/internal/adapter"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version, the Go version and the rule engines compiled into this binary.",
		Run: func(cmd *cobra.Command, _ []string) {
			version, goVersion := "unknown", "unknown"
			if info, ok := debug.ReadBuildInfo(); ok {
				if info.Main.Version != "" {
					version = info.Main.Version
				}

				goVersion = info.GoVersion
			}

			cmd.Println("sigscan version\t", version)
			cmd.Println("go version\t", goVersion)
			cmd.Println("rule engines\t", strings.Join(adapter.Engines(), ", "))
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
