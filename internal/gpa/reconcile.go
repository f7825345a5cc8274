package gpa

import (
	"fmt"
	"regexp"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/results"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	report_reconcile_subject_code = "reconcile.subject-code"
	report_reconcile_credits      = "reconcile.credits"
)

// CreditTable maps subject codes to their credit weight, it must not be
// modified after it has been loaded.
type CreditTable map[string]float64

// Codes returns the subject codes of the table in sorted order.
func (t CreditTable) Codes() []string {
	codes := make([]string, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// minimum Jaro-Winkler similarity for a known code to be suggested
const suggestionThreshold = 0.9

// closest returns the known code most similar to `code`, or "" if nothing is
// similar enough.
func (t CreditTable) closest(code string) string {
	best := ""
	bestSimilarity := suggestionThreshold
	for _, known := range t.Codes() {
		similarity := matchr.JaroWinkler(code, known, false)
		if similarity >= bestSimilarity {
			best = known
			bestSimilarity = similarity
		}
	}
	return best
}

// Record is the reconciled grade of one subject code.
type Record struct {
	Code    string
	Grade   string
	Credits float64
}

var subjectCodeRegex = regexp.MustCompile(`^[A-Z]{3}\d{4}`)

// SubjectCode extracts the subject code at the start of a raw subject label.
func SubjectCode(label string) (string, bool) {
	code := subjectCodeRegex.FindString(strings.TrimSpace(label))
	return code, code != ""
}

func isMedical(grade string) bool {
	return strings.ToUpper(strings.TrimSpace(grade)) == GradeMedical
}

// Reconcile merges the subjects of `rs` into one Record per subject code.
//
// Labels without a subject code are skipped. When a code appears more than once
// the first grade seen is kept, unless it is MC and a later grade is not.
// Codes missing from `table` get DefaultCredits. Both cases are reported as
// warnings to `tel`.
func Reconcile(rs results.ResultSet, table CreditTable, tel telemetry.API) []Record {
	var order []string
	grades := map[string]string{}

	for _, subject := range rs.Subjects {
		code, ok := SubjectCode(subject.Label)
		if !ok {
			tel.ReportWarning(
				report_reconcile_subject_code,
				fmt.Errorf("could not extract subject code"),
				subject.Label,
			)
			continue
		}

		existing, seen := grades[code]
		if !seen {
			order = append(order, code)
			grades[code] = subject.Grade
			continue
		}
		if isMedical(existing) && !isMedical(subject.Grade) {
			grades[code] = subject.Grade
		}
	}

	records := make([]Record, len(order))
	for i, code := range order {
		credits, ok := table[code]
		if !ok {
			tel.ReportWarning(
				report_reconcile_credits,
				fmt.Errorf("no credit mapping, using %.1f", DefaultCredits),
				code,
				fmt.Sprintf("closest: %q", table.closest(code)),
				fmt.Sprintf("known: %d", len(table)),
			)
			credits = DefaultCredits
		}
		records[i] = Record{
			Code:    code,
			Grade:   grades[code],
			Credits: credits,
		}
	}

	return records
}
