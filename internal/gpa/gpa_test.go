package gpa

import (
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/results"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func resultSet(subjects ...results.Subject) results.ResultSet {
	var rs results.ResultSet
	for _, s := range subjects {
		rs.Subjects = append(rs.Subjects, s)
	}
	return rs
}

func TestSubjectCode(t *testing.T) {
	table := []struct {
		label string
		code  string
		ok    bool
	}{
		{label: "SCS1301 Data Structures", code: "SCS1301", ok: true},
		{label: "  ENH1001 English", code: "ENH1001", ok: true},
		{label: "SCS13011", code: "SCS1301", ok: true},
		{label: "scs1301 lower", ok: false},
		{label: "Data SCS1301", ok: false},
		{label: "SC1301", ok: false},
		{label: "", ok: false},
	}
	for _, row := range table {
		code, ok := SubjectCode(row.label)
		require.Equal(t, row.ok, ok, row.label)
		require.Equal(t, row.code, code, row.label)
	}
}

func TestEndToEnd(t *testing.T) {
	rec := &telemetry.Recorder{}
	table := CreditTable{"SCS1301": 3, "SCS2201": 4}
	rs := resultSet(
		results.Subject{Label: "SCS1301 Data Structures", Grade: "A-"},
		results.Subject{Label: "SCS2201 Algorithms", Grade: "MC"},
		results.Subject{Label: "SCS2201 Algorithms (Repeat)", Grade: "B"},
	)

	records := Reconcile(rs, table, rec)
	require.Equal(t, []Record{
		{Code: "SCS1301", Grade: "A-", Credits: 3},
		{Code: "SCS2201", Grade: "B", Credits: 4},
	}, records)
	require.Empty(t, rec.Warnings(""))

	result := Score(records)
	require.InDelta(t, 23.10, result.GradePoints, 1e-9)
	require.InDelta(t, 7.0, result.TotalCredits, 1e-9)
	require.InDelta(t, 3.30, result.Gpa, 1e-9)
}

func TestMedicalSupersession(t *testing.T) {
	table := []struct {
		name     string
		subjects []results.Subject
		expected string
	}{
		{
			name: "mc then grade",
			subjects: []results.Subject{
				{Label: "SCS1301 X", Grade: "MC"},
				{Label: "SCS1301 X (2024)", Grade: "B+"},
			},
			expected: "B+",
		},
		{
			name: "grade then mc",
			subjects: []results.Subject{
				{Label: "SCS1301 X", Grade: "B+"},
				{Label: "SCS1301 X (2024)", Grade: "MC"},
			},
			expected: "B+",
		},
		{
			name: "first seen wins",
			subjects: []results.Subject{
				{Label: "SCS1301 X", Grade: "C"},
				{Label: "SCS1301 X (2024)", Grade: "A"},
			},
			expected: "C",
		},
		{
			name: "lowercase mc",
			subjects: []results.Subject{
				{Label: "SCS1301 X", Grade: " mc "},
				{Label: "SCS1301 X (2024)", Grade: "A"},
			},
			expected: "A",
		},
		{
			name: "only one swap",
			subjects: []results.Subject{
				{Label: "SCS1301 X", Grade: "MC"},
				{Label: "SCS1301 X (2024)", Grade: "D"},
				{Label: "SCS1301 X (2025)", Grade: "A"},
			},
			expected: "D",
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			records := Reconcile(resultSet(row.subjects...), CreditTable{"SCS1301": 2}, &telemetry.Recorder{})
			require.Len(t, records, 1)
			require.Equal(t, row.expected, records[0].Grade)
		})
	}
}

func TestReconcileWarnings(t *testing.T) {
	rec := &telemetry.Recorder{}
	rs := resultSet(
		results.Subject{Label: "Total credits", Grade: "20"},
		results.Subject{Label: "SCS1310 Typo Course", Grade: "A"},
	)

	records := Reconcile(rs, CreditTable{"SCS1301": 3}, rec)
	require.Equal(t, []Record{{Code: "SCS1310", Grade: "A", Credits: DefaultCredits}}, records)

	require.Len(t, rec.Warnings(report_reconcile_subject_code), 1)
	creditWarnings := rec.Warnings(report_reconcile_credits)
	require.Len(t, creditWarnings, 1)
	require.Contains(t, creditWarnings[0].Params, `closest: "SCS1301"`)
}

func TestReconcileIdempotent(t *testing.T) {
	table := CreditTable{"SCS1301": 3, "SCS2201": 4, "ENH1001": 2}
	rs := resultSet(
		results.Subject{Label: "SCS2201 Algorithms", Grade: "MC"},
		results.Subject{Label: "ENH1001 English", Grade: "A"},
		results.Subject{Label: "SCS1301 Data Structures", Grade: "A-"},
		results.Subject{Label: "SCS2201 Algorithms", Grade: "B"},
	)

	first := Reconcile(rs, table, &telemetry.Recorder{})
	second := Reconcile(rs, table, &telemetry.Recorder{})

	diff := cmp.Diff(first, second, cmpopts.SortSlices(func(a, b Record) bool {
		return a.Code < b.Code
	}))
	require.Empty(t, diff)
}

func TestScoreRules(t *testing.T) {
	table := []struct {
		name      string
		record    Record
		treatment Treatment
		credits   float64
		points    float64
	}{
		{
			name:      "enhancement",
			record:    Record{Code: "ENG1001", Grade: "A", Credits: 3},
			treatment: TreatmentEnhancement,
		},
		{
			name:      "not completed",
			record:    Record{Code: "SCS1301", Grade: "NC", Credits: 3},
			treatment: TreatmentExcluded,
		},
		{
			name:      "cm",
			record:    Record{Code: "SCS1301", Grade: "cm", Credits: 3},
			treatment: TreatmentExcluded,
		},
		{
			name:      "medical",
			record:    Record{Code: "SCS1301", Grade: "MC", Credits: 3},
			treatment: TreatmentZeroScored,
			credits:   3,
		},
		{
			name:      "withheld",
			record:    Record{Code: "SCS1301", Grade: " wh", Credits: 2},
			treatment: TreatmentZeroScored,
			credits:   2,
		},
		{
			name:      "letter",
			record:    Record{Code: "SCS1301", Grade: "b-", Credits: 2},
			treatment: TreatmentCounted,
			credits:   2,
			points:    5.4,
		},
		{
			name:      "fail",
			record:    Record{Code: "SCS1301", Grade: "F", Credits: 2},
			treatment: TreatmentCounted,
			credits:   2,
		},
		{
			name:      "unrecognized",
			record:    Record{Code: "SCS1301", Grade: "X", Credits: 2},
			treatment: TreatmentUnrecognized,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			result := Score([]Record{row.record})
			require.Len(t, result.Details, 1)
			require.Equal(t, row.treatment, result.Details[0].Treatment)
			require.InDelta(t, row.credits, result.TotalCredits, 1e-9)
			require.InDelta(t, row.points, result.GradePoints, 1e-9)
		})
	}
}

func TestScoreEmpty(t *testing.T) {
	result := Score(nil)
	require.Equal(t, 0.0, result.Gpa)
	require.Equal(t, 0.0, result.TotalCredits)

	result = Score([]Record{{Code: "SCS1301", Grade: "NC", Credits: 3}})
	require.Equal(t, 0.0, result.Gpa)
	require.Equal(t, 0.0, result.TotalCredits)
}

func TestScoreBounds(t *testing.T) {
	grades := []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "E", "F", "MC", "WH", "NC", "CM", "X"}

	// every pair of grades over a few credit weights
	for _, g1 := range grades {
		for _, g2 := range grades {
			for _, credits := range []float64{0, 0.5, 1, 3} {
				result := Score([]Record{
					{Code: "SCS1301", Grade: g1, Credits: credits},
					{Code: "SCS1302", Grade: g2, Credits: 4},
				})
				require.GreaterOrEqual(t, result.TotalCredits, 0.0)
				require.GreaterOrEqual(t, result.Gpa, 0.0)
				require.LessOrEqual(t, result.Gpa, MaxGpa+1e-9)
			}
		}
	}
}
