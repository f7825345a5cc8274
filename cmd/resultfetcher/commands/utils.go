package commands

import (
	"fmt"
	"io"
	"resultfetcher/internal/gpa"
	"resultfetcher/internal/portal"
	"resultfetcher/internal/roster"
	"resultfetcher/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func formatGpa(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func newWalker(e *env) (portal.Walker, error) {
	return portal.NewWalker(e.cfg.Portal.Endpoints(), e.cfg.Portal.Options(), e.tel)
}

func loadCredits(e *env, path string) (gpa.CreditTable, error) {
	if path == "" {
		path = e.cfg.Batch.CreditsFile
	}
	return roster.LoadCredits(path, e.tel)
}

func openStore(e *env) (store.Store, func(), error) {
	db, err := e.cfg.Database.OpenDB()
	if err != nil {
		return store.Store{}, nil, err
	}
	return store.NewStore(db), func() { db.Close() }, nil
}

// renderDetails prints how each subject contributed to a GPA.
func renderDetails(out io.Writer, result gpa.Result) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Code", "Grade", "Credits", "Points", "Treatment"})
	for _, c := range result.Details {
		t.AppendRow(table.Row{c.Code, c.Grade, c.Credits, formatGpa(c.Points), c.Treatment})
	}
	t.AppendFooter(table.Row{"", "GPA", result.TotalCredits, formatGpa(result.GradePoints), formatGpa(result.Gpa)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}
