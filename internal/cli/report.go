package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/placar/internal/adapters/repository"
	service "github.com/okian/placar/internal/app"
	"github.com/okian/placar/internal/domain/stats"
	"github.com/okian/placar/pkg/logger"
)

func newReportCommand(g *globals) *cobra.Command {
	var (
		championship string
		limit        int
		window       int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the overview and the three leaderboards",
		Long: `Open the statistics database, compute every leaderboard and print them as tables.

Boards:
  top scorers     goals per player, highest first
  best defenses   goals conceded per match, lowest first
  best attacks    goals scored per match, highest first`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := g.cfg
			if !cmd.Flags().Changed("limit") {
				limit = cfg.DefaultLimit
			}
			if !cmd.Flags().Changed("window") {
				window = cfg.EventWindow
			}
			if limit < 1 {
				return fmt.Errorf("limit must be at least 1")
			}

			store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN, repository.WithLogger(logger.Named("store")))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = store.Close() }()

			svc := service.New(store,
				service.WithEventWindow(window),
				service.WithEngineOptions(
					stats.WithDefaultLimit(cfg.DefaultLimit),
					stats.WithStrictScores(cfg.StrictScores),
					stats.WithUnknownPlayerName(cfg.UnknownPlayerName),
					stats.WithUnknownTeamName(cfg.UnknownTeamName),
				),
				service.WithLogger(logger.Named("report")),
			)
			st, err := svc.Statistics(ctx, service.Query{ChampionshipID: championship, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printOverview(out, st.Overview)
			printScorers(out, st.TopScorers)
			printRates(out, "Melhores defesas (gols sofridos por partida)", st.BestDefenses)
			printRates(out, "Melhores ataques (gols marcados por partida)", st.BestAttacks)
			return nil
		},
	}
	cmd.Flags().StringVar(&championship, "championship", "", "restrict to one championship id")
	cmd.Flags().IntVar(&limit, "limit", 0, "entries per board (default from config)")
	cmd.Flags().IntVar(&window, "window", 0, "recent goal events to count, 0 for all (default from config)")
	return cmd
}
