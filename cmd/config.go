package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sigscan.dev/pkg/sigscan/internal/adapter"
	"sigscan.dev/pkg/sigscan/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "sigscan"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName      = "output"
	logFileFlagName     = "log-file"
	verboseFlagName     = "verbose"
	extFlagName         = "ext"
	excludeFlagName     = "exclude"
	sniffFlagName       = "sniff"
	concurrencyFlagName = "concurrency"
	timeoutFlagName     = "timeout"
	rulesFlagName       = "rules"
	engineFlagName      = "engine"
	noReportFlagName    = "no-report"
	maxSizeFlagName     = "max-size"

	scanConcurrencyKey = "scan.concurrency"
	scanTimeoutKey     = "scan.timeout"
	scanExtensionsKey  = "scan.extensions"
	scanExcludeKey     = "scan.exclude"
	scanSniffKey       = "scan.sniff"
	scanNoReportKey    = "scan.no_report"
	scanMaxFileSizeKey = "scan.max_file_size"
	rulesPathsKey      = "rules.paths"
	rulesEngineKey     = "rules.engine"
	uiPlainKey         = "ui.plain"

	defaultReportsDir     = ".sigscan-reports"
	defaultConcurrency    = domain.DefaultMaxConcurrency
	defaultTimeoutSeconds = int(domain.DefaultScanTimeout / time.Second)
	defaultRulesFile      = "php.yar"
	defaultEngine         = adapter.EngineNative
	defaultMaxFileSizeMiB = 64

	envPrefix = "SIGSCAN"

	logFilenameKey   = "log.filename"
	logFallbackKey   = "log.fallback"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = "scan.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var defaultExtensions = []string{".php"}

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(scanConcurrencyKey, defaultConcurrency)
	viper.SetDefault(scanTimeoutKey, defaultTimeoutSeconds)
	viper.SetDefault(scanExtensionsKey, defaultExtensions)
	viper.SetDefault(scanExcludeKey, []string{})
	viper.SetDefault(scanSniffKey, false)
	viper.SetDefault(scanNoReportKey, false)
	viper.SetDefault(scanMaxFileSizeKey, defaultMaxFileSizeMiB)
	viper.SetDefault(rulesPathsKey, defaultRulePaths())
	viper.SetDefault(rulesEngineKey, defaultEngine)
	viper.SetDefault(uiPlainKey, false)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logFallbackKey, defaultLogFallback())
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	readConfigFile(viper.GetViper(), os.Stderr)
}

// readConfigFile loads the config file into v. A missing file is not an
// error. Any other failure is reported on stderr, since logging is not set
// up yet, and the defaults stay in effect.
func readConfigFile(v *viper.Viper, stderr io.Writer) {
	err := v.ReadInConfig()
	if err == nil {
		return
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return
	}

	_, _ = fmt.Fprintf(stderr, "%s: ignoring config file: %v\n", configBaseName, err)
}

// defaultRulePaths lists the working-directory rules file first and the
// per-user copy second.
func defaultRulePaths() []string {
	paths := []string{defaultRulesFile}

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, configBaseName, defaultRulesFile))
	}

	return paths
}

func defaultLogFallback() string {
	return filepath.Join(os.TempDir(), configBaseName, defaultLogFilename)
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}
