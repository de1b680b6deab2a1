// Package cmd provides the root command and CLI setup for sigscan.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sigscan.dev/pkg/sigscan/internal/adapter"
	"sigscan.dev/pkg/sigscan/internal/controller"
	"sigscan.dev/pkg/sigscan/internal/domain"
	m "sigscan.dev/pkg/sigscan/internal/model"
)

var sourceFSAdapter adapter.SourceFSAdapter
var ruleLoader adapter.RuleLoader
var reportStore adapter.ReportStore
var scheduler domain.Scheduler
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// logFileFlag overrides the primary log file.
var logFileFlag string

// verboseFlag enables debug logging.
var verboseFlag bool

// Discovery flags are shared by scan and list.
var (
	extensionsFlag  []string
	excludePatterns []string
	sniffFlag       bool
)

func init() {
	configureRootFlags(rootCmd)

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
	}

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout) && !viper.GetBool(uiPlainKey))
	sourceFSAdapter = adapter.NewLocalSourceFSAdapter()
	ruleLoader = adapter.NewLocalRuleLoader()
	reportStore = adapter.NewReportStore()
	scheduler = domain.NewScheduler()
	workflow = domain.NewWorkflow(
		sourceFSAdapter,
		ruleLoader,
		reportStore,
		ui,
		scheduler,
	)
}

const rootLongDescription = `sigscan scans a directory tree for files matching malware signature rules.

Files are scanned in batches of bounded concurrency with a per-file timeout.
A file that cannot be read, times out or trips the rule engine is reported
as a failure without stopping the run.`

const scanLongDescription = `Scan every candidate file under the given directory against the
configured signature rules and print the findings.

Rules are read from the first usable path of --rules (default: ./php.yar,
then the user config directory). Press q in the terminal UI or send an
interrupt to stop after the current batch.`

const listLongDescription = `List the files a scan of the given directory would cover.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sigscan",
		Short: "Malware signature scanner",
		Long:  rootLongDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			defaultReportsDir,
			"output directory for scan reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, defaultLogFilename, "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", defaultLogVerbose, "enable debug logging")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringSliceVar(&extensionsFlag, extFlagName, defaultExtensions, "file extensions to scan (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(extFlagName), scanExtensionsKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", nil, "exclude paths matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), scanExcludeKey)

	cmd.PersistentFlags().BoolVar(&sniffFlag, sniffFlagName, false, "also scan files whose content looks like PHP")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(sniffFlagName), scanSniffKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
