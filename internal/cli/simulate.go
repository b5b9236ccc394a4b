package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/placar/internal/domain/stats"
	"github.com/okian/placar/internal/simulate"
	"github.com/okian/placar/pkg/logger"
)

const defaultSimulationTimeout = 10 * time.Minute

func newSimulateCommand(g *globals) *cobra.Command {
	var (
		cfg     simulate.Config
		overall time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Submit a generated season to a running server and verify its statistics",
		Long: `Generate a round-robin season, post every match and event concurrently,
wait for the server to write them, then compare GET /statistics with the
leaderboards computed locally from the same data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), overall)
			defer cancel()

			if !cmd.Flags().Changed("window") {
				cfg.Window = g.cfg.EventWindow
			}
			engine := stats.New(
				stats.WithDefaultLimit(g.cfg.DefaultLimit),
				stats.WithUnknownPlayerName(g.cfg.UnknownPlayerName),
				stats.WithUnknownTeamName(g.cfg.UnknownTeamName),
			)
			r, err := simulate.New(cfg, simulate.WithEngine(engine), simulate.WithLogger(logger.Named("simulate")))
			if err != nil {
				return err
			}

			report, err := r.Run(ctx)
			if report != nil {
				printSimulation(cmd.OutOrStdout(), report)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the placar server")
	f.StringVar(&cfg.ChampionshipID, "championship", "", "championship id (generated when empty)")
	f.IntVar(&cfg.Teams, "teams", simulate.DefaultTeams, "number of teams")
	f.IntVar(&cfg.Rounds, "rounds", simulate.DefaultRounds, "full round-robins to play")
	f.IntVar(&cfg.PlayersPerTeam, "players", simulate.DefaultPlayersPerTeam, "roster size per team")
	f.IntVar(&cfg.Unplayed, "unplayed", 0, "leave the last N fixtures scheduled")
	f.IntVar(&cfg.Duplicates, "duplicates", 0, "resubmit the first N events to exercise deduplication")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	f.IntVar(&cfg.Limit, "limit", simulate.DefaultLimit, "entries per board to verify")
	f.IntVar(&cfg.Window, "window", simulate.DefaultWindow, "server event window; scorer checks are skipped past it")
	f.DurationVar(&cfg.Timeout, "timeout", simulate.DefaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.DrainTimeout, "drain-timeout", simulate.DefaultDrainTimeout, "how long to wait for the intake to drain")
	f.Uint64Var(&cfg.Seed, "seed", 0, "random seed (0 picks one from the clock)")
	f.DurationVar(&overall, "deadline", defaultSimulationTimeout, "overall time limit")
	return cmd
}

func printSimulation(w io.Writer, r *simulate.Report) {
	fmt.Fprintln(w, "Simulação")
	table := newTable(w)
	table.Header("CAMPEONATO", "SEMENTE", "PARTIDAS", "EVENTOS", "GOLS", "ACEITOS", "DUPLICADOS", "RETENTATIVAS", "DURAÇÃO")
	table.Append(
		r.ChampionshipID,
		strconv.FormatUint(r.Seed, 10),
		strconv.Itoa(r.Matches),
		strconv.Itoa(r.Events),
		strconv.Itoa(r.Goals),
		strconv.FormatInt(r.Accepted, 10),
		strconv.FormatInt(r.Duplicates, 10),
		strconv.FormatInt(r.Retries, 10),
		r.Duration.Round(time.Millisecond).String(),
	)
	table.Render()
	fmt.Fprintln(w)

	if r.Statistics.Overview.Matches == 0 {
		return
	}
	printOverview(w, r.Statistics.Overview)
	printScorers(w, r.Statistics.TopScorers)
	printRates(w, "Melhores defesas (gols sofridos por partida)", r.Statistics.BestDefenses)
	printRates(w, "Melhores ataques (gols marcados por partida)", r.Statistics.BestAttacks)
}
