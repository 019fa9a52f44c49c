package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tomato-sh/tomato/config"
)

// configCmd shows the current configuration and where it lives.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Show the configuration tomato would use, including the config file
location. Missing files are fine: defaults apply.

Example:
  tomato config
  tomato config -c /path/to/config.yaml`,
	RunE: runConfig,
}

// setPortCmd persists a default port to the config file.
var setPortCmd = &cobra.Command{
	Use:   "set-port <port>",
	Short: "Save a default port to the config file",
	Long: `Save a default port to the config file so future runs of
"tomato serve" use it.

Example:
  tomato set-port 9000`,
	Args: cobra.ExactArgs(1),
	RunE: runSetPort,
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setPortCmd)

	configCmd.Flags().StringP("config", "c", "", "path to config file (default: user config dir)")
	setPortCmd.Flags().StringP("config", "c", "", "path to config file (default: user config dir)")
}

// resolveConfigPath returns the --config flag value or the per-user default.
func resolveConfigPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("Config file: %s\n", path)
	fmt.Printf("  Port:              %d\n", cfg.Port)
	if cfg.Title != "" {
		fmt.Printf("  Title:             %s\n", cfg.Title)
	}
	fmt.Printf("  Heartbeat timeout: %s\n", cfg.HeartbeatTimeout.Duration())
	fmt.Printf("  Grace period:      %s\n", cfg.GracePeriod.Duration())
	fmt.Printf("  Check interval:    %s\n", cfg.CheckInterval.Duration())
	fmt.Printf("  Warmup:            %s\n", cfg.Warmup.Duration())

	return nil
}

func runSetPort(cmd *cobra.Command, args []string) error {
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}

	path, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Port = port

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Default port set to %d (%s)\n", port, path)
	return nil
}

// parsePort parses and range-checks a port argument.
func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port must be a number, got %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return port, nil
}
