package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/okian/placar/internal/domain/model"
)

const emptyBoard = "Nenhum dado disponível ainda"

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

func printOverview(w io.Writer, o model.Overview) {
	fmt.Fprintln(w, "Visão geral")
	table := newTable(w)
	table.Header("CAMPEONATOS", "PARTIDAS", "EQUIPES")
	table.Append(strconv.Itoa(o.Championships), strconv.Itoa(o.Matches), strconv.Itoa(o.Teams))
	table.Render()
	fmt.Fprintln(w)
}

func printScorers(w io.Writer, entries []model.ScorerEntry) {
	fmt.Fprintln(w, "Artilheiros")
	if len(entries) == 0 {
		fmt.Fprintf(w, "(%s)\n\n", emptyBoard)
		return
	}
	table := newTable(w)
	table.Header("#", "JOGADOR", "EQUIPE", "GOLS")
	for i, e := range entries {
		table.Append(strconv.Itoa(i+1), e.PlayerName, e.TeamName, strconv.Itoa(e.Goals))
	}
	table.Render()
	fmt.Fprintln(w)
}

func printRates(w io.Writer, title string, entries []model.TeamRateEntry) {
	fmt.Fprintln(w, title)
	if len(entries) == 0 {
		fmt.Fprintf(w, "(%s)\n\n", emptyBoard)
		return
	}
	table := newTable(w)
	table.Header("#", "EQUIPE", "PARTIDAS", "GOLS", "MÉDIA")
	for i, e := range entries {
		table.Append(strconv.Itoa(i+1), e.TeamName, strconv.Itoa(e.Matches), strconv.Itoa(e.Goals), strconv.FormatFloat(e.Rate, 'f', 2, 64))
	}
	table.Render()
	fmt.Fprintln(w)
}
