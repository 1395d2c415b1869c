// Package cli implements the memer command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opencode-ai/memer/internal/config"
	"github.com/opencode-ai/memer/internal/logging"
	"github.com/spf13/cobra"
)

// Build information, set from main.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
	logFormat  string
	noColor    bool

	appConfig *config.Config

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "memer",
	Short: "Create image macro memes from templates",
	Long: `memer renders captions onto template images.

Templates are discovered in the project's .memer/templates directory, the user
data directory and /usr/share/memer/templates. Use 'memer templates pull' to
download the default set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/memer/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func initApp() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		// Still log the failure in a readable form.
		logging.Init(logging.Options{Level: "info", Format: logFormat, NoColor: noColor || !colorEnabled(), Output: stderr})
		return err
	}
	appConfig = cfg

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	format := cfg.Logging.Format
	if logFormat != "" {
		format = logFormat
	}
	logging.Init(logging.Options{
		Level:   level,
		Format:  format,
		NoColor: noColor || !colorEnabled(),
		Output:  stderr,
	})

	logger := logging.Component("cli")
	logger.Debug().
		Str("config", cfg.Path).
		Str("data_dir", cfg.Templates.DataDir).
		Msg("configuration loaded")
	return nil
}

// GetConfig returns the loaded configuration, or defaults before initApp ran.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.Default()
	}
	return appConfig
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	code := ExitCode(err)
	if IsJSONOutput() {
		_ = WriteOutput(stdout, map[string]any{
			"error":     err.Error(),
			"exit_code": code,
		})
		return code
	}

	fmt.Fprintln(stderr, styles().Error.Render("Error:")+" "+err.Error())
	var usage *UsageError
	if errors.As(err, &usage) && usage.Hint != "" {
		fmt.Fprintln(stderr, styles().Muted.Render(strings.TrimSpace(usage.Hint)))
	}
	return code
}
