package store

import (
	"context"
	"database/sql"
	"resultfetcher/internal/batch"
	"resultfetcher/internal/results"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("resultfetcher/store")

// Store keeps the rankings of every batch run.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type Standing struct {
	Index   string
	Name    string
	Email   string
	Rank    int
	Gpa     float64
	Credits float64
	Grades  []results.Subject
}

type Run struct {
	Time      time.Time
	Attempted int
	Succeeded int
	Standings []Standing
}

// NewRun builds a Run out of a batch report and its rankings. Only the best
// ranked standing of a repeated index is kept.
func NewRun(report batch.Report, ranked []batch.Ranked) Run {
	run := Run{
		Time:      report.FinishedAt,
		Attempted: report.Attempted,
		Succeeded: report.Succeeded,
	}
	seen := map[string]bool{}
	for _, r := range ranked {
		if seen[r.Student.Index] {
			continue
		}
		seen[r.Student.Index] = true
		standing := Standing{
			Index:   r.Student.Index,
			Name:    r.Name,
			Email:   r.Student.Email,
			Rank:    r.Rank,
			Gpa:     r.Gpa.Gpa,
			Credits: r.Gpa.TotalCredits,
		}
		if r.Results != nil {
			standing.Grades = r.Results.Clone().Subjects
		}
		run.Standings = append(run.Standings, standing)
	}
	return run
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Push stores a run and returns its id.
func (s Store) Push(ctx context.Context, run Run) (int64, error) {
	ctx, span := tracer.Start(ctx, "Push")
	defer span.End()
	span.SetAttributes(attribute.Int("standings", len(run.Standings)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fail(span, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		"insert into run(time, attempted, succeeded) values (?, ?, ?)",
		run.Time.Unix(), run.Attempted, run.Succeeded,
	)
	if err != nil {
		return 0, fail(span, err)
	}
	runId, err := res.LastInsertId()
	if err != nil {
		return 0, fail(span, err)
	}

	for _, standing := range run.Standings {
		_, err = tx.ExecContext(
			ctx,
			`insert into student(student_index, name, email) values (?, ?, ?)
			on conflict(student_index) do update set name = excluded.name, email = excluded.email`,
			standing.Index, standing.Name, standing.Email,
		)
		if err != nil {
			return 0, fail(span, err)
		}

		_, err = tx.ExecContext(
			ctx,
			"insert into standing(run_id, student_index, rank, gpa, credits) values (?, ?, ?, ?, ?)",
			runId, standing.Index, standing.Rank, standing.Gpa, standing.Credits,
		)
		if err != nil {
			return 0, fail(span, err)
		}

		for _, subject := range standing.Grades {
			_, err = tx.ExecContext(
				ctx,
				"insert into grade(run_id, student_index, subject, grade) values (?, ?, ?, ?)",
				runId, standing.Index, subject.Label, subject.Grade,
			)
			if err != nil {
				return 0, fail(span, err)
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, fail(span, err)
	}
	return runId, nil
}

// StudentRow is one line of a stored ranking.
type StudentRow struct {
	Time    time.Time
	Rank    int
	Index   string
	Name    string
	Email   string
	Gpa     float64
	Credits float64
}

// Latest returns the ranking of the most recent run, or nothing if no run
// has been stored yet.
func (s Store) Latest(ctx context.Context) ([]StudentRow, error) {
	ctx, span := tracer.Start(ctx, "Latest")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		select run.time, standing.rank, student.student_index, student.name, student.email, standing.gpa, standing.credits
		from standing
		inner join run on run.id = standing.run_id
		inner join student on student.student_index = standing.student_index
		where run.id = (select id from run order by time desc, id desc limit 1)
		order by standing.rank asc`,
	)
	if err != nil {
		return nil, fail(span, err)
	}
	defer rows.Close()

	var out []StudentRow
	for rows.Next() {
		var (
			row      StudentRow
			unixTime int64
		)
		err = rows.Scan(&unixTime, &row.Rank, &row.Index, &row.Name, &row.Email, &row.Gpa, &row.Credits)
		if err != nil {
			return nil, fail(span, err)
		}
		row.Time = time.Unix(unixTime, 0)
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// GpaPoint is a student's standing in a single run.
type GpaPoint struct {
	Time    time.Time
	Rank    int
	Gpa     float64
	Credits float64
}

// History returns the standings of a student over every stored run, oldest first.
func (s Store) History(ctx context.Context, index string) ([]GpaPoint, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()
	span.SetAttributes(attribute.String("student.index", index))

	rows, err := s.db.QueryContext(ctx, `
		select run.time, standing.rank, standing.gpa, standing.credits
		from standing
		inner join run on run.id = standing.run_id
		where standing.student_index = ?
		order by run.time asc, run.id asc`,
		index,
	)
	if err != nil {
		return nil, fail(span, err)
	}
	defer rows.Close()

	var out []GpaPoint
	for rows.Next() {
		var (
			point    GpaPoint
			unixTime int64
		)
		err = rows.Scan(&unixTime, &point.Rank, &point.Gpa, &point.Credits)
		if err != nil {
			return nil, fail(span, err)
		}
		point.Time = time.Unix(unixTime, 0)
		out = append(out, point)
	}
	if err = rows.Err(); err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// Grades returns the raw subject grades a student had in a run.
func (s Store) Grades(ctx context.Context, runId int64, index string) ([]results.Subject, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select subject, grade from grade where run_id = ? and student_index = ? order by rowid asc",
		runId, index,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []results.Subject
	for rows.Next() {
		var subject results.Subject
		err = rows.Scan(&subject.Label, &subject.Grade)
		if err != nil {
			return nil, err
		}
		out = append(out, subject)
	}
	return out, rows.Err()
}
