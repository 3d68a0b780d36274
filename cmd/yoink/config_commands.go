package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"yoink/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set telegram.token (or export TELEGRAM_TOKEN) before running yoinkd.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			source := path
			if !exists {
				source = "built-in defaults"
			}
			fmt.Fprintln(out, renderStatusLine("Source", statusInfo, source, colorize))
			fmt.Fprintln(out, renderStatusLine("Staging dir", statusInfo, cfg.Paths.StagingDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Log dir", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(out, renderStatusLine("API bind", statusInfo, cfg.Paths.APIBind, colorize))
			fmt.Fprintln(out, renderStatusLine("API auth", statusInfo, yesNo(strings.TrimSpace(cfg.Paths.APIToken) != ""), colorize))
			fmt.Fprintln(out, renderStatusLine("Bot token set", statusInfo, yesNo(strings.TrimSpace(cfg.Telegram.Token) != ""), colorize))
			fmt.Fprintln(out, renderStatusLine("Max upload", statusInfo, fmt.Sprintf("%d MiB", cfg.Telegram.MaxUploadMiB), colorize))
			fmt.Fprintln(out, renderStatusLine("Max video height", statusInfo, fmt.Sprintf("%dp", cfg.Fetch.MaxVideoHeight), colorize))
			fmt.Fprintln(out, renderStatusLine("Storage enabled", statusInfo, yesNo(cfg.Storage.Enabled), colorize))
			fmt.Fprintln(out, renderStatusLine("Ntfy topic set", statusInfo, yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""), colorize))
			fmt.Fprintln(out, renderStatusLine("Worker lanes", statusInfo, fmt.Sprintf("%d", cfg.Workflow.Lanes), colorize))
			return nil
		},
	}
}
