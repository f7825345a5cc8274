package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyIndex *string

func init() {
	historyIndex = historyCmd.Flags().String("index", "", "The student's index number.")
	historyCmd.MarkFlagRequired("index")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history --index <index>",
	Short: "Shows a student's GPA and rank over every stored batch run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeDb, err := openStore(current)
		if err != nil {
			return err
		}
		defer closeDb()

		points, err := s.History(cmd.Context(), *historyIndex)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No stored runs include %s.\n", *historyIndex)
			return nil
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Time", "Rank", "GPA", "Credits"})
		for _, p := range points {
			t.AppendRow(table.Row{
				p.Time.In(current.clock.Location()).Format("2006-01-02 15:04"),
				p.Rank,
				formatGpa(p.Gpa),
				p.Credits,
			})
		}
		t.Render()
		return nil
	},
}
