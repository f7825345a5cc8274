package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"resultfetcher/internal/batch"
	"resultfetcher/internal/export"
	"resultfetcher/internal/notify"
	"resultfetcher/internal/roster"
	"resultfetcher/internal/store"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	batchStudents *string
	batchCredits  *string
	batchNotify   *bool
	batchNoStore  *bool
)

func init() {
	batchStudents = batchCmd.Flags().String("students", "", "The student file (index, secret, [email]), defaults to batch.students_file.")
	batchCredits = batchCmd.Flags().String("credits", "", "The credit table, defaults to batch.credits_file.")
	batchNotify = batchCmd.Flags().Bool("notify", false, "E-mail every ranked student their rank, also enabled by email.enabled.")
	batchNoStore = batchCmd.Flags().Bool("no-store", false, "Do not record the run in the database.")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch [--students <path>] [--credits <path>] [--notify] [--no-store]",
	Short: "Fetches the results of every student in a file and ranks them by GPA.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := current

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		studentsPath := *batchStudents
		if studentsPath == "" {
			studentsPath = e.cfg.Batch.StudentsFile
		}
		students, err := roster.LoadStudents(studentsPath, e.tel)
		if err != nil {
			return fmt.Errorf("read students: %w", err)
		}
		if len(students) == 0 {
			return fmt.Errorf("no student records found in %s", studentsPath)
		}

		credits, err := loadCredits(e, *batchCredits)
		if err != nil {
			return err
		}
		walker, err := newWalker(e)
		if err != nil {
			return err
		}

		runner := batch.NewRunner(walker, credits, batch.Options{
			Pacing: e.cfg.Batch.Pacing(),
			OnProgress: func(p batch.Progress) {
				if p.Last.Ok() {
					slog.Info(
						"fetched student",
						"progress", fmt.Sprintf("%d/%d", p.Attempted, p.Total),
						"index", p.Last.Student.Index,
						"name", p.Last.Name,
						"gpa", formatGpa(p.Last.Gpa.Gpa),
					)
					err := export.UpsertStudent(e.cfg.Batch.StudentSheet, p.Last.Student.Index, *p.Last.Results)
					if err != nil {
						slog.Error("failed to update student sheet", "err", err)
					}
					return
				}
				slog.Warn(
					"failed to fetch student",
					"progress", fmt.Sprintf("%d/%d", p.Attempted, p.Total),
					"index", p.Last.Student.Index,
					"err", p.Last.Err,
				)
			},
		}, e.clock, e.tel)

		slog.Info("processing students", "count", len(students))
		report := runner.Run(ctx, students, nil)
		ranked := batch.Rank(report.Outcomes)

		out := cmd.OutOrStdout()
		t := newTable(out)
		t.AppendHeader(table.Row{"Rank", "Name", "Index", "GPA", "Credits"})
		for _, r := range ranked {
			t.AppendRow(table.Row{r.Rank, r.Name, r.Student.Index, formatGpa(r.Gpa.Gpa), r.Gpa.TotalCredits})
		}
		t.AppendFooter(table.Row{"", "Succeeded", fmt.Sprintf("%d/%d", report.Succeeded, report.Attempted), "", ""})
		t.Render()

		if len(ranked) == 0 {
			slog.Warn("no student results available for ranking")
			return nil
		}

		err = export.WriteRankedFile(e.cfg.Batch.RankedSheet, ranked, e.cfg.Email.Domain)
		if err != nil {
			slog.Error("failed to write ranked sheet", "path", e.cfg.Batch.RankedSheet, "err", err)
		}

		// a cancelled batch still records what it fetched
		persistCtx := context.WithoutCancel(ctx)
		if !*batchNoStore {
			err = pushRun(persistCtx, e, store.NewRun(report, ranked))
			if err != nil {
				slog.Error("failed to store run", "err", err)
			}
		}

		if report.Cancelled {
			slog.Warn("batch was cancelled, not sending notifications")
			return nil
		}
		if !*batchNotify && !e.cfg.Email.Enabled {
			slog.Info("email notifications are disabled")
			return nil
		}

		notifier := notify.NewNotifier(notify.NewSmtpSender(e.cfg.Email.Smtp), e.cfg.Email.Options(), e.tel)
		sent, err := notifier.SendRanks(ctx, ranked)
		slog.Info("sent rank notifications", "sent", sent, "total", len(ranked))
		return err
	},
}

func pushRun(ctx context.Context, e *env, run store.Run) error {
	s, closeDb, err := openStore(e)
	if err != nil {
		return err
	}
	defer closeDb()

	id, err := s.Push(ctx, run)
	if err != nil {
		return err
	}
	slog.Info("stored run", "id", id)
	return nil
}
