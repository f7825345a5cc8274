package results

import (
	"errors"
	"resultfetcher/internal/components/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<h2>Student Portal</h2>
<h3>Name : K. A. Perera, Index : 23000123</h3>
<table class="table table-bordered">
	<tr><th>Subject</th><th>Year</th><th>Semester</th><th>Credits</th><th>Result</th></tr>
	<tr><td>SCS1301 Data Structures</td><td>2023</td><td>1</td><td>3</td><td> A- </td></tr>
	<tr><td>SCS1302 Databases</td><td>2023</td><td>1</td><td>3</td><td>MC</td></tr>
	<tr><td>broken row</td><td>B</td></tr>
</table>
<table class="table table-bordered">
	<tr><td>Subject</td><td>Year</td><td>Semester</td><td>Credits</td><td>Result</td></tr>
	<tr><td>SCS1302 Databases</td><td>2024</td><td>1</td><td>3</td><td>B+</td></tr>
	<tr><td>ENH1001 English</td><td>2024</td><td>1</td><td>2</td><td>A</td></tr>
</table>
<table class="table"><tr><td>a</td><td>b</td><td>c</td><td>d</td><td>e</td></tr><tr><td>IGN1000 Ignored</td><td></td><td></td><td></td><td>A</td></tr></table>
</body></html>`

func TestExtract(t *testing.T) {
	rec := &telemetry.Recorder{}
	rs, err := Extract(resultsPage, rec)
	require.NoError(t, err)

	require.Equal(t, "K. A. Perera", rs.Name)
	require.Equal(t, []Subject{
		{Label: "SCS1301 Data Structures", Grade: "A-"},
		{Label: "SCS1302 Databases", Grade: "B+"},
		{Label: "ENH1001 English", Grade: "A"},
	}, rs.Subjects)
	require.Empty(t, rec.Warnings(""))
}

func TestExtractWithoutName(t *testing.T) {
	rs, err := Extract(`<table class="table-bordered">
		<tr><th>h</th></tr>
		<tr><td>SCS1301 X</td><td></td><td></td><td></td><td>C</td></tr>
	</table>`, &telemetry.Recorder{})
	require.NoError(t, err)
	require.Equal(t, "", rs.Name)
	require.Equal(t, 1, rs.Len())
}

func TestExtractHeaderOnlyTable(t *testing.T) {
	rs, err := Extract(`<h3>Name : Someone,</h3><table class="table-bordered"><tr><td>a</td><td>b</td><td>c</td><td>d</td><td>e</td></tr></table>`, &telemetry.Recorder{})
	require.NoError(t, err)
	require.Equal(t, "Someone", rs.Name)
	require.Equal(t, 0, rs.Len())
}

func TestExtractNoResults(t *testing.T) {
	table := []struct {
		name   string
		page   string
		reason string
	}{
		{
			name:   "error banner",
			page:   `<div class="alert alert-danger"> Invalid index number or NIC </div>`,
			reason: "Invalid index number or NIC",
		},
		{
			name:   "nothing",
			page:   `<html><body><p>Welcome</p></body></html>`,
			reason: "",
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			rec := &telemetry.Recorder{}
			rs, err := Extract(row.page, rec)
			require.ErrorIs(t, err, ErrNoResultsFound)

			var noResults *NoResultsError
			require.True(t, errors.As(err, &noResults))
			require.Equal(t, row.reason, noResults.Reason)
			require.Equal(t, 0, rs.Len())
			require.Len(t, rec.Warnings(report_extract), 1)
		})
	}
}

func TestResultSetSet(t *testing.T) {
	var rs ResultSet
	rs.Set("SCS1301 X", "MC")
	rs.Set("SCS2201 Y", "A")
	rs.Set("SCS1301 X", "B+")

	require.Equal(t, []Subject{
		{Label: "SCS1301 X", Grade: "B+"},
		{Label: "SCS2201 Y", Grade: "A"},
	}, rs.Subjects)

	grade, ok := rs.Grade("SCS2201 Y")
	require.True(t, ok)
	require.Equal(t, "A", grade)
	_, ok = rs.Grade("missing")
	require.False(t, ok)

	clone := rs.Clone()
	clone.Set("SCS1301 X", "C")
	grade, _ = rs.Grade("SCS1301 X")
	require.Equal(t, "B+", grade)
}
