package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var creditsPath *string

func init() {
	creditsPath = creditsCmd.Flags().String("credits", "", "The credit table, defaults to batch.credits_file.")
	rootCmd.AddCommand(creditsCmd)
}

var creditsCmd = &cobra.Command{
	Use:   "credits [--credits <path>]",
	Short: "Prints the loaded credit table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		credits, err := loadCredits(current, *creditsPath)
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Code", "Credits"})
		for _, code := range credits.Codes() {
			t.AppendRow(table.Row{code, credits[code]})
		}
		t.AppendFooter(table.Row{"Subjects", len(credits)})
		t.Render()
		return nil
	},
}
