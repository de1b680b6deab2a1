package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sigscan.dev/pkg/sigscan/internal/adapter"
	"sigscan.dev/pkg/sigscan/internal/domain"
	m "sigscan.dev/pkg/sigscan/internal/model"
)

var scanConcurrencyFlag int
var scanTimeoutFlag int
var scanRulesFlag []string
var scanEngineFlag string
var scanNoReportFlag bool
var scanMaxSizeFlag int

// scanCmd represents the scan command.
var scanCmd = newScanCmd()

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Scan a directory for signature matches",
		Long:  scanLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return workflow.Scan(ctx, scanArgsFromConfig(m.Path(args[0])))
		},
	}

	configureScanFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func configureScanFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&scanConcurrencyFlag, concurrencyFlagName, "c", defaultConcurrency, "number of files scanned concurrently per batch")
	bindFlagToConfig(cmd.Flags().Lookup(concurrencyFlagName), scanConcurrencyKey)

	cmd.Flags().IntVarP(&scanTimeoutFlag, timeoutFlagName, "t", defaultTimeoutSeconds, "per-file scan timeout in seconds")
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFlagName), scanTimeoutKey)

	cmd.Flags().StringArrayVarP(&scanRulesFlag, rulesFlagName, "r", nil, "rule file to try, in order (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(rulesFlagName), rulesPathsKey)

	cmd.Flags().StringVar(&scanEngineFlag, engineFlagName, defaultEngine, "rule engine ("+adapter.EngineNative+" or yara when built with -tags yara)")
	bindFlagToConfig(cmd.Flags().Lookup(engineFlagName), rulesEngineKey)

	cmd.Flags().BoolVar(&scanNoReportFlag, noReportFlagName, false, "do not save the run report")
	bindFlagToConfig(cmd.Flags().Lookup(noReportFlagName), scanNoReportKey)

	cmd.Flags().IntVar(&scanMaxSizeFlag, maxSizeFlagName, defaultMaxFileSizeMiB, "skip files larger than this many MiB as I/O errors (0 disables the limit)")
	bindFlagToConfig(cmd.Flags().Lookup(maxSizeFlagName), scanMaxFileSizeKey)
}

func scanArgsFromConfig(root m.Path) domain.ScanArgs {
	return domain.ScanArgs{
		Root:           root,
		RulePaths:      parsePaths(viper.GetStringSlice(rulesPathsKey)),
		Engine:         viper.GetString(rulesEngineKey),
		Discover:       discoverOptionsFromConfig(),
		MaxConcurrency: viper.GetInt(scanConcurrencyKey),
		Timeout:        time.Duration(viper.GetInt(scanTimeoutKey)) * time.Second,
		MaxFileSize:    int64(viper.GetInt(scanMaxFileSizeKey)) << 20,
		Reports:        m.Path(viper.GetString(outputFlagName)),
		SaveReport:     !viper.GetBool(scanNoReportKey),
	}
}

func discoverOptionsFromConfig() adapter.DiscoverOptions {
	return adapter.DiscoverOptions{
		Extensions:   viper.GetStringSlice(scanExtensionsKey),
		Exclude:      viper.GetStringSlice(scanExcludeKey),
		SniffContent: viper.GetBool(scanSniffKey),
	}
}
