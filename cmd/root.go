package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/paths"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "clanbot",
	Short: "A Discord bot that registers and manages player clans",
	Long: `clanbot runs the clan registration bot: a guided registration wizard,
clan roles and summaries, a join panel, and leader management buttons.

The Discord token is read from CLANBOT_DISCORD_TOKEN.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runBot,
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return loadConfig(viper.GetViper(), cmd != configInitCmd)
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .clanbot/config.yaml, then ~/.config/clanbot/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"log at debug level to the console")
}

// defaultConfigPath is where a missing config is created.
func defaultConfigPath() string {
	return filepath.Join(paths.DirName, paths.ConfigFile)
}

// loadConfig resolves the config file, writing the default template when
// none exists and createDefault is set, and unmarshals it over the
// defaults.
func loadConfig(v *viper.Viper, createDefault bool) error {
	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	default:
		if _, err := os.Stat(defaultConfigPath()); err == nil {
			v.SetConfigFile(defaultConfigPath())
		} else if user := paths.UserConfigPath(); user != "" {
			v.AddConfigPath(filepath.Dir(user))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("reading config: %w", err)
		}
		if cfgFile == "" && createDefault {
			if werr := config.WriteDefaultConfig(defaultConfigPath()); werr == nil {
				v.SetConfigFile(defaultConfigPath())
				_ = v.ReadInConfig()
			}
		}
	}

	cfg = config.Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	cfg.ResolvePaths()
	return nil
}

// configPath is the file the config subcommands write to.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigPath()
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
