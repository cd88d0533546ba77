package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/clanbot/internal/config"
)

var (
	forceInit     bool
	chanRegistry  string
	chanLog       string
	chanJoinPanel string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the clanbot config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath()
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return err
	},
}

var configSetChannelsCmd = &cobra.Command{
	Use:   "set-channels",
	Short: "Set the registry, log and join panel channels",
	Long: `Set the channels the bot publishes into. Flags left out keep their
current value. Comments in the config file are preserved.

Example:
  clanbot config set-channels --registry 111 --log 222 --join-panel 333`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		channels := cfg.Channels
		if cmd.Flags().Changed("registry") {
			channels.Registry = chanRegistry
		}
		if cmd.Flags().Changed("log") {
			channels.Log = chanLog
		}
		if cmd.Flags().Changed("join-panel") {
			channels.JoinPanel = chanJoinPanel
		}
		if channels == cfg.Channels {
			return errors.New("nothing to change: pass --registry, --log or --join-panel")
		}
		path := configPath()
		if err := config.SaveChannels(path, channels); err != nil {
			return err
		}
		cfg.Channels = channels
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Updated channels in %s\n", path)
		return err
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
	configSetChannelsCmd.Flags().StringVar(&chanRegistry, "registry", "", "channel for public clan summaries")
	configSetChannelsCmd.Flags().StringVar(&chanLog, "log", "", "channel for audit summaries")
	configSetChannelsCmd.Flags().StringVar(&chanJoinPanel, "join-panel", "", "channel holding the join panel")
	configCmd.AddCommand(configInitCmd, configSetChannelsCmd)
	rootCmd.AddCommand(configCmd)
}
