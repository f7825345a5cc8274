package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rankingsCmd)
}

var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Lists the rankings of the most recent stored batch run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeDb, err := openStore(current)
		if err != nil {
			return err
		}
		defer closeDb()

		rows, err := s.Latest(cmd.Context())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No batch run has been stored yet.")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Run of %s\n", rows[0].Time.In(current.clock.Location()).Format("2006-01-02 15:04"))
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Rank", "Name", "Index", "Email", "GPA", "Credits"})
		for _, r := range rows {
			t.AppendRow(table.Row{r.Rank, r.Name, r.Index, r.Email, formatGpa(r.Gpa), r.Credits})
		}
		t.Render()
		return nil
	},
}
