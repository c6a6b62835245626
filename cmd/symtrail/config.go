package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"symtrail/internal/config"
)

var (
	configFormat string
	configTOML   bool
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage symtrail configuration",
	Long:  "View and manage symtrail configuration stored in .symtrail/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, the config file and
SYMTRAIL_* environment overrides are applied.

Examples:
  symtrail config show
  symtrail config show --format=toml`,
	Run: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Write the default configuration to .symtrail/config.json, or to
.symtrail/config.toml with --toml. A TOML file is read with --config.`,
	Run: runConfigInit,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "json", "Output format (json, yaml, toml)")
	configInitCmd.Flags().BoolVar(&configTOML, "toml", false, "Write config.toml instead of config.json")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	root, err := workingRoot()
	if err != nil {
		exitWith(err)
	}
	cfg, err := loadConfig(root, newLogger())
	if err != nil {
		exitWith(err)
	}

	output, err := FormatResponse(cfg, OutputFormat(configFormat))
	if err != nil {
		exitWith(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	root, err := workingRoot()
	if err != nil {
		exitWith(err)
	}
	path, err := writeDefaultConfig(root, configTOML, configForce)
	if err != nil {
		exitWith(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
}

func writeDefaultConfig(root string, asTOML, force bool) (string, error) {
	name := "config.json"
	if asTOML {
		name = "config.toml"
	}
	path := filepath.Join(root, config.Dir, name)
	if !force && fileExists(path) {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	if asTOML {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", err
		}
		return path, cfg.SaveTOML(path)
	}
	return path, cfg.Save(root)
}
