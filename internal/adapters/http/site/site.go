// Package site renders the public statistics page.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
)

// Error constants.
var (
	ErrRender = errors.New("statistics page render failed")
)

const emptyBoard = "Nenhum dado disponível ainda"

//go:embed templates/*.html
var templatesFS embed.FS

var page = template.Must(template.New("statistics.html").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"rate": func(r float64) string { return strconv.FormatFloat(r, 'f', 1, 64) },
}).ParseFS(templatesFS, "templates/statistics.html"))

// StatisticsReader supplies the data shown on the page.
type StatisticsReader interface {
	Statistics(ctx context.Context, q model.Query) (model.Statistics, error)
}

type pageData struct {
	Title        string
	Championship string
	Empty        string
	Stats        model.Statistics
}

// Register attaches the statistics page to mux at GET /{$}.
func Register(_ context.Context, mux *http.ServeMux, reader StatisticsReader, l logger.Logger) {
	if mux == nil {
		panic("mux is nil")
	}
	if l == nil {
		l = logger.Nop()
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		champ := strings.TrimSpace(r.URL.Query().Get("championship"))
		stats, err := reader.Statistics(r.Context(), model.Query{ChampionshipID: champ})
		if err != nil {
			l.Error(r.Context(), "statistics page read failed", logger.Error(err))
			http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
			return
		}

		// Render into a buffer so a template failure never sends a partial page.
		var buf bytes.Buffer
		if err := page.Execute(&buf, pageData{
			Title:        "Estatísticas",
			Championship: champ,
			Empty:        emptyBoard,
			Stats:        stats,
		}); err != nil {
			l.Error(r.Context(), "statistics page render failed", logger.Error(err))
			http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	})
}
