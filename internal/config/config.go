// Package config provides configuration types and defaults for clanbot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/flags"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/paths"
)

// Config holds all configuration options for clanbot.
type Config struct {
	GuildID       string            `mapstructure:"guild_id"`
	CommandPrefix string            `mapstructure:"command_prefix"`
	DataDir       string            `mapstructure:"data_dir"`
	Channels      ChannelsConfig    `mapstructure:"channels"`
	Roles         RolesConfig       `mapstructure:"roles"`
	Clans         ClansConfig       `mapstructure:"clans"`
	Storage       StorageConfig     `mapstructure:"storage"`
	StateFile     string            `mapstructure:"state_file"`
	Log           LogConfig         `mapstructure:"log"`
	Tracing       TracingConfig     `mapstructure:"tracing"`
	Flags         map[string]bool   `mapstructure:"flags"`
	Theme         ThemeConfig       `mapstructure:"theme"`
	Emojis        map[string]string `mapstructure:"emojis"`
}

// ChannelsConfig names the channels the bot publishes into.
type ChannelsConfig struct {
	Registry  string `mapstructure:"registry"`   // public clan summaries
	Log       string `mapstructure:"log"`        // audit summaries
	JoinPanel string `mapstructure:"join_panel"` // channel holding the join panel
}

// RolesConfig holds platform role ids the bot manages.
type RolesConfig struct {
	LeaderRoleID string `mapstructure:"leader_role_id"`
}

// ClansConfig holds the clan registration policy.
type ClansConfig struct {
	MinMembers     int           `mapstructure:"min_members"` // leader + roster
	ColorThreshold float64       `mapstructure:"color_threshold"`
	TagMin         int           `mapstructure:"tag_min"`
	TagMax         int           `mapstructure:"tag_max"`
	Servers        []string      `mapstructure:"servers"`
	EmblemTimeout  time.Duration `mapstructure:"emblem_timeout"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

// HasServer reports whether key is one of the configured servers.
func (c ClansConfig) HasServer(key string) bool {
	for _, s := range c.Servers {
		if s == key {
			return true
		}
	}
	return false
}

// StorageConfig selects the clan record store.
type StorageConfig struct {
	// Backend is "sqlite" (default) or "mongo". The mongo URI comes from
	// CLANBOT_MONGO_URI.
	Backend         string `mapstructure:"backend"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MongoDatabase   string `mapstructure:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level         string `mapstructure:"level"`
	Dir           string `mapstructure:"dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Retention returns the log retention as a duration.
func (l LogConfig) Retention() time.Duration {
	return time.Duration(l.RetentionDays) * 24 * time.Hour
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: <data_dir>/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// ThemeConfig holds embed color overrides.
type ThemeConfig struct {
	// Colors overrides palette entries by name. Supports nested YAML and
	// quoted dot notation:
	//   colors:
	//     "status.success": "#00FF00"
	Colors map[string]any `mapstructure:"colors"`
}

// FlattenedColors returns the Colors map flattened to dot-notation keys.
func (t ThemeConfig) FlattenedColors() map[string]string {
	result := make(map[string]string)
	flattenColors("", t.Colors, result)
	return result
}

func flattenColors(prefix string, m map[string]any, result map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			result[key] = val
		case map[string]any:
			flattenColors(key, val, result)
		case map[any]any:
			// YAML sometimes produces map[any]any instead of map[string]any
			converted := make(map[string]any)
			for mk, mv := range val {
				if strKey, ok := mk.(string); ok {
					converted[strKey] = mv
				}
			}
			flattenColors(key, converted, result)
		}
	}
}

// Palette names used by the embed renderers.
const (
	ColorPrimary = "primary"
	ColorSuccess = "success"
	ColorWarning = "warning"
	ColorDanger  = "danger"
	ColorPremium = "premium"
	ColorGold    = "gold"
)

// DefaultPalette returns the built-in embed colors.
func DefaultPalette() map[string]int {
	return map[string]int{
		ColorPrimary: 0x5865F2,
		ColorSuccess: 0x57F287,
		ColorWarning: 0xFEE75C,
		ColorDanger:  0xED4245,
		ColorPremium: 0xFF73FA,
		ColorGold:    0xFFD700,
	}
}

// Palette merges valid theme overrides over DefaultPalette. Invalid hex
// values are logged and ignored.
func (t ThemeConfig) Palette() map[string]int {
	palette := DefaultPalette()
	for name, hex := range t.FlattenedColors() {
		rgb, err := domain.ParseHex(hex)
		if err != nil {
			log.Warn(log.CatConfig, "Ignoring invalid theme color", "name", name, "value", hex)
			continue
		}
		palette[strings.ToLower(name)] = rgb.Int()
	}
	return palette
}

// Emoji names used by the renderers.
const (
	EmojiClan     = "clan"
	EmojiSparkles = "sparkles"
	EmojiCrown    = "crown"
	EmojiShield   = "shield"
	EmojiSword    = "sword"
	EmojiStar     = "star"
	EmojiRocket   = "rocket"
	EmojiLoading  = "loading"
	EmojiPencil   = "pencil"
	EmojiUsers    = "users"
	EmojiFilled   = "progress_filled"
	EmojiEmpty    = "progress_empty"
)

// DefaultEmojis returns the built-in emoji set.
func DefaultEmojis() map[string]string {
	return map[string]string{
		EmojiClan:     "🏰",
		EmojiSparkles: "✨",
		EmojiCrown:    "👑",
		EmojiShield:   "🛡️",
		EmojiSword:    "⚔️",
		EmojiStar:     "⭐",
		EmojiRocket:   "🚀",
		EmojiLoading:  "⏳",
		EmojiPencil:   "📝",
		EmojiUsers:    "👥",
		EmojiFilled:   "▰",
		EmojiEmpty:    "▱",
	}
}

// EmojiSet returns DefaultEmojis with configured overrides applied.
func (c Config) EmojiSet() map[string]string {
	set := DefaultEmojis()
	for k, v := range c.Emojis {
		set[strings.ToLower(k)] = v
	}
	return set
}

// DefaultServers are the selectable game servers.
func DefaultServers() []string {
	return []string{"1", "2", "3", "4"}
}

// Defaults returns a Config with sensible default values. Paths left empty
// are derived from the data directory at startup.
func Defaults() Config {
	return Config{
		CommandPrefix: "!",
		Clans: ClansConfig{
			MinMembers:     5,
			ColorThreshold: domain.DefaultColorThreshold,
			TagMin:         2,
			TagMax:         7,
			Servers:        DefaultServers(),
			EmblemTimeout:  60 * time.Second,
			SessionTTL:     30 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:         "sqlite",
			MongoDatabase:   "clanbot",
			MongoCollection: "clans",
		},
		Log: LogConfig{
			Level:         "info",
			RetentionDays: 14,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Flags:  flags.Defaults(),
		Emojis: map[string]string{},
	}
}

// Validate checks the whole configuration. Empty channel ids are allowed;
// the features using them stay inert until set.
func Validate(c Config) error {
	if c.CommandPrefix == "" {
		return fmt.Errorf("command_prefix must not be empty")
	}
	if err := ValidateClans(c.Clans); err != nil {
		return err
	}
	if err := ValidateStorage(c.Storage); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.RetentionDays < 0 {
		return fmt.Errorf("log.retention_days must not be negative, got %d", c.Log.RetentionDays)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateClans checks the registration policy.
func ValidateClans(c ClansConfig) error {
	if c.MinMembers < 1 {
		return fmt.Errorf("clans.min_members must be at least 1, got %d", c.MinMembers)
	}
	if c.ColorThreshold < 0 {
		return fmt.Errorf("clans.color_threshold must not be negative, got %v", c.ColorThreshold)
	}
	if c.TagMin < 1 || c.TagMax < c.TagMin {
		return fmt.Errorf("clans.tag_min/tag_max must satisfy 1 <= min <= max, got %d/%d", c.TagMin, c.TagMax)
	}
	if len(c.Servers) == 0 {
		return fmt.Errorf("clans.servers must list at least one server")
	}
	seen := make(map[string]bool, len(c.Servers))
	for _, s := range c.Servers {
		if s == "" {
			return fmt.Errorf("clans.servers must not contain empty keys")
		}
		if seen[s] {
			return fmt.Errorf("clans.servers contains %q twice", s)
		}
		seen[s] = true
	}
	if c.EmblemTimeout <= 0 {
		return fmt.Errorf("clans.emblem_timeout must be positive, got %v", c.EmblemTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("clans.session_ttl must be positive, got %v", c.SessionTTL)
	}
	return nil
}

// ValidateStorage checks the store selection.
func ValidateStorage(s StorageConfig) error {
	switch s.Backend {
	case "", "sqlite":
	case "mongo":
		if s.MongoDatabase == "" || s.MongoCollection == "" {
			return fmt.Errorf("storage.mongo_database and storage.mongo_collection are required for the mongo backend")
		}
	default:
		return fmt.Errorf("storage.backend must be \"sqlite\" or \"mongo\", got %q", s.Backend)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// ResolvePaths fills empty file locations from the data directory.
func (c *Config) ResolvePaths() {
	c.DataDir = paths.ResolveDataDir(c.DataDir)
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = paths.DatabasePath(c.DataDir)
	}
	if c.StateFile == "" {
		c.StateFile = paths.StatePath(c.DataDir)
	}
	if c.Log.Dir == "" {
		c.Log.Dir = paths.LogsPath(c.DataDir)
	}
	if c.Tracing.FilePath == "" {
		c.Tracing.FilePath = paths.TracesPath(c.DataDir)
	}
}

// SortedServers returns the configured servers in display order.
func (c ClansConfig) SortedServers() []string {
	out := append([]string(nil), c.Servers...)
	sort.Strings(out)
	return out
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# clanbot configuration

# Guild the bot manages (required to run)
# guild_id: "123456789012345678"

# Prefix for text commands (!create-clan, !insignia-setup)
command_prefix: "!"

# Data directory for the database, state file and logs (default: ./.clanbot)
# data_dir: /var/lib/clanbot

# Channels the bot publishes into. Set with 'clanbot config set-channels'.
channels:
  registry: ""     # public clan summaries
  log: ""          # audit summaries
  join_panel: ""   # channel holding the join panel

roles:
  # Role granted to every clan leader (optional)
  leader_role_id: ""

# Registration policy
clans:
  min_members: 5          # leader + roster at approval time
  color_threshold: 50     # minimum RGB distance to any other clan color
  tag_min: 2
  tag_max: 7
  servers: ["1", "2", "3", "4"]
  emblem_timeout: 60s     # how long the wizard waits for an emblem upload
  session_ttl: 30m        # abandoned registration sessions expire after this

# Clan record store
storage:
  backend: sqlite         # sqlite (default) or mongo
  # sqlite_path: /var/lib/clanbot/clanbot.db
  # mongo settings; the URI is read from CLANBOT_MONGO_URI
  mongo_database: clanbot
  mongo_collection: clans

# Bot state (join panel location). Default: <data_dir>/state.json
# state_file: /var/lib/clanbot/state.json

log:
  level: info             # debug, info, warn, error
  # dir: /var/log/clanbot # default: <data_dir>/logs
  retention_days: 14

# Distributed tracing around clan lifecycle operations
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ./.clanbot/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)

# Feature flags
flags:
  nickname-tags: true     # prefix clan tags to member nicknames
  leader-privilege: true  # grant roles.leader_role_id to clan leaders
  event-log: false        # log every lifecycle event

# Embed color overrides (primary, success, warning, danger, premium, gold)
# theme:
#   colors:
#     success: "#2ECC71"

# Emoji overrides
# emojis:
#   clan: "🏯"
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
