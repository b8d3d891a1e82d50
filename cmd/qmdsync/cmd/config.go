package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/qmdsync/configs"
	"github.com/Aman-CERP/qmdsync/internal/config"
	"github.com/Aman-CERP/qmdsync/internal/ui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage qmdsync configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/qmdsync/config.yaml)
  3. Vault config (.qmdsync.yaml in the vault root)
  4. .env in the vault root
  5. Environment variables (QMDSYNC_*)`,
		Example: `  # Create .qmdsync.yaml in the current vault
  qmdsync config init

  # Create the user config
  qmdsync config init --user

  # Show effective configuration
  qmdsync config show`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	var user bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the template",
		Long: `Create .qmdsync.yaml in the vault root, or the user configuration with
--user. An existing file is left alone unless --force is given, in which
case it is backed up first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, user, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&user, "user", false, "Create the user configuration instead of the vault one")
	return cmd
}

func runConfigInit(cmd *cobra.Command, user, force bool) error {
	out := cmd.OutOrStdout()
	styles := ui.GetStyles(ui.DetectOptions(out, false).NoColor)

	path, template, err := configTarget(user)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			_, _ = fmt.Fprintf(out, "%s %s\n", styles.Warning.Render("Configuration already exists:"), path)
			_, _ = fmt.Fprintln(out, styles.Dim.Render("Use --force to overwrite it (a backup is kept)"))
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		_, _ = fmt.Fprintf(out, "%s %s\n", styles.Label.Render("Backup:"), backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(out, "%s %s\n", styles.Success.Render("Created"), path)
	return nil
}

// configTarget returns where config init writes and what.
func configTarget(user bool) (string, string, error) {
	if user {
		return config.GetUserConfigPath(), configs.UserConfigTemplate, nil
	}
	vault := vaultFlag
	if vault == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("failed to get working directory: %w", err)
		}
		vault = wd
	}
	if existing := config.ProjectConfigPath(vault); existing != "" {
		return existing, configs.VaultConfigTemplate, nil
	}
	return filepath.Join(vault, config.ProjectFileNames[0]), configs.VaultConfigTemplate, nil
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after merging defaults, files and environment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return ui.WriteJSON(out, a.cfg)
			}

			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "user:  %s\n", config.GetUserConfigPath())
			path, _, err := configTarget(false)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "vault: %s\n", path)
			return nil
		},
	}
}
