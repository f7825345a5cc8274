package batch

import (
	"context"
	"errors"
	"fmt"
	"resultfetcher/internal/components/assert"
	"resultfetcher/internal/components/chrono"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/gpa"
	"resultfetcher/internal/portal"
	"resultfetcher/internal/results"
	"resultfetcher/internal/roster"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("resultfetcher/batch")

const (
	report_batch_run     = "batch.run"
	report_batch_student = "batch.student"
	report_batch_success = "batch.success"
)

// Fetcher is implemented by portal.Walker.
//
// note: fault injection point
type Fetcher interface {
	FetchResults(ctx context.Context, creds portal.Credentials, cancelled portal.CancelCheck) (*results.ResultSet, error)
}

// Outcome is the result of processing one student. Exactly one of Results and
// Err is set.
type Outcome struct {
	Student roster.Student
	// Name is the extracted student name or `Student <index>` if there was none.
	Name    string
	Results *results.ResultSet
	Gpa     gpa.Result
	Err     error
}

func (o Outcome) Ok() bool {
	return o.Err == nil && o.Results != nil
}

// Progress is passed to the progress callback after every student.
type Progress struct {
	Attempted int
	Total     int
	Last      Outcome
}

func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Attempted) / float64(p.Total) * 100
}

type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
	Total      int
	Attempted  int
	Succeeded  int
	Cancelled  bool
}

type Options struct {
	// Pacing is the minimum interval between two students, 0 means no pacing.
	Pacing     time.Duration
	OnProgress func(Progress)
}

type Runner struct {
	fetcher Fetcher
	credits gpa.CreditTable
	options Options
	limiter *rate.Limiter
	clock   chrono.API
	tel     telemetry.API
}

func NewRunner(fetcher Fetcher, credits gpa.CreditTable, options Options, clock chrono.API, tel telemetry.API) Runner {
	assert.NotNil(fetcher)
	assert.NotNil(clock)
	assert.NotNil(tel)

	limit := rate.Inf
	if options.Pacing > 0 {
		limit = rate.Every(options.Pacing)
	}

	return Runner{
		fetcher: fetcher,
		credits: credits,
		options: options,
		limiter: rate.NewLimiter(limit, 1),
		clock:   clock,
		tel:     telemetry.NewScopedAPI("batch", tel),
	}
}

// DisplayName returns the name shown for a student in rankings and e-mails.
func DisplayName(rs *results.ResultSet, index string) string {
	if rs != nil && rs.Name != "" {
		return rs.Name
	}
	return fmt.Sprintf("Student %s", index)
}

// Evaluate reconciles and scores a single result set with the runner's
// credit table.
func (r Runner) Evaluate(rs results.ResultSet) gpa.Result {
	return gpa.Score(gpa.Reconcile(rs, r.credits, r.tel))
}

func (r Runner) processStudent(ctx context.Context, student roster.Student, cancelled portal.CancelCheck) (Outcome, bool) {
	ctx, span := tracer.Start(ctx, "batch:student")
	defer span.End()
	span.SetAttributes(attribute.String("student.index", student.Index))

	out := Outcome{
		Student: student,
		Name:    DisplayName(nil, student.Index),
	}

	rs, err := r.fetcher.FetchResults(ctx, student.Credentials, cancelled)
	if err != nil {
		var noResults *results.NoResultsError
		if errors.As(err, &noResults) {
			r.tel.ReportWarning(report_batch_student, err, student.Index)
		} else {
			r.tel.ReportBroken(report_batch_student, err, student.Index)
		}
		out.Err = err
		return out, true
	}
	if rs == nil {
		// cancelled mid-walk
		return out, false
	}

	out.Results = rs
	out.Name = DisplayName(rs, student.Index)
	out.Gpa = r.Evaluate(*rs)
	span.SetAttributes(attribute.Float64("student.gpa", out.Gpa.Gpa))
	return out, true
}

// Run processes `students` one at a time. Failures are recorded on their
// Outcome and never abort the batch, cancellation through `cancelled` or ctx
// stops it before the next student. A repeated index is fetched once, with
// the values of its last row.
func (r Runner) Run(ctx context.Context, students []roster.Student, cancelled portal.CancelCheck) Report {
	ctx, span := tracer.Start(ctx, "batch:Run")
	defer span.End()

	if cancelled == nil {
		cancelled = portal.NeverCancel
	}

	students, repeated := roster.Unique(students)
	for _, index := range repeated {
		r.tel.ReportWarning(report_batch_run, "duplicate index, fetching it once", index)
	}

	report := Report{
		StartedAt: r.clock.Now(),
		Total:     len(students),
	}

	for _, student := range students {
		if ctx.Err() != nil || cancelled() {
			report.Cancelled = true
			break
		}
		err := r.limiter.Wait(ctx)
		if err != nil {
			report.Cancelled = true
			break
		}
		if cancelled() {
			report.Cancelled = true
			break
		}

		r.tel.ReportDebug("processing student", fmt.Sprintf("%d/%d", report.Attempted+1, report.Total), student.Index)
		outcome, done := r.processStudent(ctx, student, cancelled)
		if !done {
			report.Cancelled = true
			break
		}

		report.Attempted++
		if outcome.Ok() {
			report.Succeeded++
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if r.options.OnProgress != nil {
			r.options.OnProgress(Progress{
				Attempted: report.Attempted,
				Total:     report.Total,
				Last:      outcome,
			})
		}
	}

	if report.Cancelled {
		r.tel.ReportWarning(report_batch_run, "batch cancelled", fmt.Sprintf("%d/%d", report.Attempted, report.Total))
	}
	r.tel.ReportCount(report_batch_success, int64(report.Succeeded))
	span.SetAttributes(
		attribute.Int("batch.attempted", report.Attempted),
		attribute.Int("batch.succeeded", report.Succeeded),
	)

	report.FinishedAt = r.clock.Now()
	return report
}

type Ranked struct {
	Rank int
	Outcome
}

// Rank orders the successful outcomes by GPA descending, students with equal
// GPA keep their input order.
func Rank(outcomes []Outcome) []Ranked {
	var ranked []Ranked
	for _, o := range outcomes {
		if o.Ok() {
			ranked = append(ranked, Ranked{Outcome: o})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Gpa.Gpa > ranked[j].Gpa.Gpa
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
