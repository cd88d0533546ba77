package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/zjrosen/clanbot/internal/artifacts"
	"github.com/zjrosen/clanbot/internal/bot"
	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/clan/validation"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/flags"
	"github.com/zjrosen/clanbot/internal/infrastructure/mongo"
	"github.com/zjrosen/clanbot/internal/infrastructure/sqlite"
	"github.com/zjrosen/clanbot/internal/lifecycle"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/nickname"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/platform/discord"
	"github.com/zjrosen/clanbot/internal/pubsub"
	"github.com/zjrosen/clanbot/internal/registration"
	"github.com/zjrosen/clanbot/internal/render"
	"github.com/zjrosen/clanbot/internal/statefile"
	"github.com/zjrosen/clanbot/internal/tracing"
	"github.com/zjrosen/clanbot/internal/watcher"
)

const (
	retentionInterval = time.Hour
	shutdownTimeout   = 5 * time.Second
)

func runBot(cmd *cobra.Command, _ []string) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		return err
	}
	if err := secrets.RequireBot(cfg.Storage); err != nil {
		return err
	}

	level := cfg.Log.Level
	if debugFlag {
		level = "debug"
	}
	cleanup, err := log.Init(log.Options{Level: level, Dir: cfg.Log.Dir, Console: true})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer cleanup()
	log.Info(log.CatConfig, "clanbot starting", "version", version, "data_dir", cfg.DataDir, "storage", cfg.Storage.Backend)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Log.RetentionDays > 0 {
		go log.RunRetention(ctx, cfg.Log.Dir, cfg.Log.Retention(), retentionInterval)
	}

	repo, closeStore, err := openRepository(ctx, cfg, secrets)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn(log.CatDB, "Closing store failed", "error", err)
		}
	}()

	state, err := statefile.Open(cfg.StateFile)
	if err != nil {
		return err
	}
	defer state.Close()
	if err := state.Watch(ctx, watcher.DefaultConfig(cfg.StateFile)); err != nil {
		log.Warn(log.CatState, "State file watch disabled", "path", cfg.StateFile, "error", err)
	}

	tp, err := tracing.NewProvider(tracing.FromConfig(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			log.Warn(log.CatConfig, "Tracing shutdown failed", "error", err)
		}
	}()

	session, err := discordgo.New("Bot " + secrets.DiscordToken)
	if err != nil {
		return fmt.Errorf("creating discord session: %w", err)
	}
	client := discord.NewClient(session)
	collector := discord.NewCollector()

	b := newBot(cfg, repo, client, collector, state, tp)
	go b.RunEventLog(ctx)

	gw := discord.NewGateway(session, b, collector, func(content string) (string, []string, bool) {
		return bot.ParseCommand(cfg.CommandPrefix, content)
	}, discord.WithGuild(cfg.GuildID))
	return gw.Run(ctx)
}

// openRepository opens the configured clan store. The returned func
// closes the underlying connection.
func openRepository(ctx context.Context, c config.Config, s config.Secrets) (domain.Repository, func() error, error) {
	switch c.Storage.Backend {
	case "mongo":
		store, err := mongo.Connect(ctx, s.MongoURI, c.Storage.MongoDatabase, c.Storage.MongoCollection)
		if err != nil {
			return nil, nil, err
		}
		log.Info(log.CatDB, "Using mongo store", "database", c.Storage.MongoDatabase, "collection", c.Storage.MongoCollection)
		return store.ClanRepository(), store.Close, nil
	default:
		db, err := sqlite.NewDB(c.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		log.Info(log.CatDB, "Using sqlite store", "path", c.Storage.SQLitePath)
		return db.ClanRepository(), db.Close, nil
	}
}

// newBot wires the lifecycle, the wizard and the dispatcher on top of a
// platform and a store.
func newBot(c config.Config, repo domain.Repository, p platform.Platform, collector platform.Collector, state *statefile.Store, tp *tracing.Provider) *bot.Bot {
	registry := flags.New(flags.WithDefaults(c.Flags))
	renderer := render.New(c)
	events := pubsub.NewBroker[lifecycle.Event]()
	tracer := tp.Tracer()

	syncer := artifacts.New(p, repo, state, renderer, c.Channels, tracer)
	mgr := lifecycle.New(lifecycle.Deps{
		Repo:           repo,
		Platform:       p,
		Artifacts:      syncer,
		Nicknames:      nickname.New(p, registry),
		Flags:          registry,
		Events:         events,
		Tracer:         tracer,
		ColorThreshold: c.Clans.ColorThreshold,
		LeaderRoleID:   c.Roles.LeaderRoleID,
		Rules: validation.Rules{
			TagMin:     c.Clans.TagMin,
			TagMax:     c.Clans.TagMax,
			Servers:    c.Clans.Servers,
			MinMembers: c.Clans.MinMembers,
		},
	})
	wizard := registration.NewWizard(registration.NewStore(c.Clans.SessionTTL, events), mgr, collector, c.Clans.EmblemTimeout, tracer)

	return bot.New(bot.Deps{
		Wizard:    wizard,
		Manager:   mgr,
		Artifacts: syncer,
		Renderer:  renderer,
		Events:    events,
		Flags:     registry,
		Tracer:    tracer,
		Config:    c,
	})
}
