package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"alarmd/internal/app"
	"alarmd/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to built-in defaults when
// no file exists so the daemon runs out of the box.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config.NewConfig(defaults["base_dir"]), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "alarmd",
	Short: "Alarm daemon",
	Long:  "alarmd keeps recurring and one-shot alarms and plays a sound when one is due.\nUse alarmc to manage alarms over the daemon's unix socket.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if socket, _ := cmd.Flags().GetString("socket"); socket != "" {
			cfg.SocketPath = socket
		}
		if sound, _ := cmd.Flags().GetString("sound"); sound != "" {
			cfg.Sound.Path = sound
		}
		if snapshot, _ := cmd.Flags().GetString("snapshot"); snapshot != "" {
			cfg.Snapshot.Type = "json"
			cfg.Snapshot.Path = snapshot
		}

		d, err := app.NewDaemon(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return d.Run(ctx)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Socket:   %s\n", cfg.SocketPath)
		fmt.Printf("Sound:    %s\n", cfg.Sound.Path)
		fmt.Printf("Snapshot: %s (%s)\n", cfg.Snapshot.Path, cfg.Snapshot.Type)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Socket:        %s\n", cfg.SocketPath)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Poll Interval: %s\n", cfg.PollInterval())
		fmt.Printf("Sound:         %s\n", cfg.Sound.Path)
		fmt.Printf("Snapshot:      %s\n", cfg.Snapshot.Type)
		return nil
	},
}

func init() {
	rootCmd.Flags().String("socket", "", "Socket path (overrides config if set)")
	rootCmd.Flags().String("sound", "", "Sound file to play (overrides config if set)")
	rootCmd.Flags().String("snapshot", "", "JSON snapshot file path (overrides config if set)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
