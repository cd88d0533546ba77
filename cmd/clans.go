package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/presentation"
)

var (
	listGuild string
	listJSON  bool
)

var clansCmd = &cobra.Command{
	Use:   "clans",
	Short: "Inspect registered clans",
}

var clansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered clans",
	Long: `List registered clans from the configured store.

Examples:
  clanbot clans list
  clanbot clans list --guild 123456789012345678
  clanbot clans list --json | jq '.[].tag'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		secrets, err := config.LoadSecrets()
		if err != nil {
			return err
		}
		repo, closeStore, err := openRepository(cmd.Context(), cfg, secrets)
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()

		guild := listGuild
		if guild == "" {
			guild = cfg.GuildID
		}
		return listClans(cmd.Context(), repo, cmd.OutOrStdout(), guild, listJSON)
	},
}

func init() {
	clansListCmd.Flags().StringVar(&listGuild, "guild", "", "only clans of this guild (default: guild_id from config)")
	clansListCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	clansCmd.AddCommand(clansListCmd)
	rootCmd.AddCommand(clansCmd)
}

func listClans(ctx context.Context, repo domain.Repository, w io.Writer, guildID string, asJSON bool) error {
	clans, err := repo.Find(ctx, domain.Filter{GuildID: guildID})
	if err != nil {
		return fmt.Errorf("listing clans: %w", err)
	}
	formatter := presentation.NewFormatter(w)
	dtos := presentation.FromDomainClans(clans)
	if asJSON {
		return formatter.FormatClans(dtos)
	}
	return formatter.FormatClanTable(dtos)
}
