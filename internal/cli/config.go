package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/opencode-ai/memer/internal/config"
	"github.com/spf13/cobra"
)

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit configuration",
	// path, init and edit must work while the config file is broken.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := initApp()
		if err == nil || cmd == configShowCmd {
			return err
		}
		fmt.Fprintln(stderr, styles().Warning.Render("Warning: "+err.Error()))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  "Print the configuration after defaults, the config file and MEMER_* environment overrides are applied.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if IsJSONOutput() {
			return WriteOutput(stdout, cfg)
		}
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFilePath()
		_, statErr := os.Stat(path)
		exists := statErr == nil

		if IsJSONOutput() {
			return WriteOutput(stdout, map[string]any{
				"path":     path,
				"exists":   exists,
				"data_dir": GetConfig().Templates.DataDir,
			})
		}
		fmt.Fprintln(stdout, path)
		if !exists {
			fmt.Fprintln(stderr, styles().Muted.Render("(file does not exist; defaults are in use, run 'memer config init')"))
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFilePath()
		if err := config.WriteDefault(path, configInitForce); err != nil {
			if errors.Is(err, config.ErrConfigExists) {
				return &UsageError{Message: err.Error(), Hint: "Use --force to overwrite it."}
			}
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(stdout, map[string]string{"path": path})
		}
		fmt.Fprintf(stdout, "%s %s\n", styles().Success.Render("Config written to"), path)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $VISUAL or $EDITOR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFilePath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := config.WriteDefault(path, false); err != nil {
				return err
			}
		}

		editor := editorCommand()
		if editor == "" {
			return &UsageError{
				Message: "no editor configured",
				Hint:    "Set $VISUAL or $EDITOR, or edit " + path + " directly.",
			}
		}

		parts := strings.Fields(editor)
		edit := exec.CommandContext(cmd.Context(), parts[0], append(parts[1:], path)...)
		edit.Stdin = os.Stdin
		edit.Stdout = os.Stdout
		edit.Stderr = os.Stderr
		if err := edit.Run(); err != nil {
			return fmt.Errorf("run editor %q: %w", editor, err)
		}

		if _, err := config.Load(path); err != nil {
			fmt.Fprintln(stderr, styles().Warning.Render("Warning: the edited config does not load: "+err.Error()))
		}
		return nil
	},
}

func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if cfg := GetConfig(); cfg.Path != "" {
		return cfg.Path
	}
	return config.DefaultConfigPath()
}

func editorCommand() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return ""
}
