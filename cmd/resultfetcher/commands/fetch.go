package commands

import (
	"fmt"
	"resultfetcher/internal/batch"
	"resultfetcher/internal/export"
	"resultfetcher/internal/gpa"
	"resultfetcher/internal/portal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	fetchIndex   *string
	fetchSecret  *string
	fetchSheet   *string
	fetchCredits *string
)

func init() {
	fetchIndex = fetchCmd.Flags().String("index", "", "The student's index number.")
	fetchSecret = fetchCmd.Flags().String("secret", "", "The student's secret (NIC).")
	fetchSheet = fetchCmd.Flags().String("sheet", "", "The per-student sheet to record the results in, defaults to batch.student_sheet.")
	fetchCredits = fetchCmd.Flags().String("credits", "", "The credit table, defaults to batch.credits_file.")
	fetchCmd.MarkFlagRequired("index")
	fetchCmd.MarkFlagRequired("secret")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch --index <index> --secret <secret> [--sheet <path>] [--credits <path>]",
	Short: "Fetches the results of a single student and prints their GPA.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := current
		walker, err := newWalker(e)
		if err != nil {
			return err
		}
		credits, err := loadCredits(e, *fetchCredits)
		if err != nil {
			return err
		}

		creds := portal.Credentials{Index: *fetchIndex, Secret: *fetchSecret}
		rs, err := walker.FetchResults(cmd.Context(), creds, portal.NeverCancel)
		if err != nil {
			return err
		}
		if rs == nil {
			return fmt.Errorf("cancelled")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", batch.DisplayName(rs, creds.Index), creds.Index)

		t := newTable(out)
		t.AppendHeader(table.Row{"Subject", "Grade"})
		for _, subject := range rs.Subjects {
			t.AppendRow(table.Row{subject.Label, subject.Grade})
		}
		t.Render()

		result := gpa.Score(gpa.Reconcile(*rs, credits, e.tel))
		renderDetails(out, result)

		sheet := *fetchSheet
		if sheet == "" {
			sheet = e.cfg.Batch.StudentSheet
		}
		err = export.UpsertStudent(sheet, creds.Index, *rs)
		if err != nil {
			return fmt.Errorf("update sheet: %w", err)
		}
		return nil
	},
}
