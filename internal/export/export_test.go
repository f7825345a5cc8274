package export

import (
	"bytes"
	"os"
	"path/filepath"
	"resultfetcher/internal/batch"
	"resultfetcher/internal/gpa"
	"resultfetcher/internal/portal"
	"resultfetcher/internal/results"
	"resultfetcher/internal/roster"
	"testing"

	"github.com/stretchr/testify/require"
)

func resultSet(subjects ...results.Subject) *results.ResultSet {
	rs := &results.ResultSet{}
	for _, s := range subjects {
		rs.Set(s.Label, s.Grade)
	}
	return rs
}

func TestWriteRanked(t *testing.T) {
	ranked := []batch.Ranked{
		{
			Rank: 1,
			Outcome: batch.Outcome{
				Student: roster.Student{Credentials: portal.Credentials{Index: "1001"}, Email: "alice@example.com"},
				Name:    "Alice",
				Results: resultSet(
					results.Subject{Label: "SCS1302 Databases", Grade: "A"},
					results.Subject{Label: "SCS1301 Data Structures", Grade: "A-"},
				),
				Gpa: gpa.Result{Gpa: 3.85, TotalCredits: 6},
			},
		},
		{
			Rank: 2,
			Outcome: batch.Outcome{
				Student: roster.Student{Credentials: portal.Credentials{Index: "1002"}},
				Name:    "Student 1002",
				Results: resultSet(results.Subject{Label: "ENH1001 English", Grade: "B"}),
				Gpa:     gpa.Result{Gpa: 3, TotalCredits: 2.5},
			},
		},
	}

	var out bytes.Buffer
	err := WriteRanked(&out, ranked, "stu.example.com")
	require.NoError(t, err)
	require.Equal(t,
		"Rank,Name,Index,Email,GPA,Credits,ENH1001 English,SCS1301 Data Structures,SCS1302 Databases\n"+
			"1,Alice,1001,alice@example.com,3.85,6.00,,A-,A\n"+
			"2,Student 1002,1002,1002@stu.example.com,3.00,2.50,B,,\n",
		out.String(),
	)
}

func TestWriteRankedEmpty(t *testing.T) {
	var out bytes.Buffer
	err := WriteRanked(&out, nil, "stu.example.com")
	require.NoError(t, err)
	require.Equal(t, "Rank,Name,Index,Email,GPA,Credits\n", out.String())
}

func TestUpsertStudent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	err := UpsertStudent(path, "1001", *resultSet(
		results.Subject{Label: "SCS1301", Grade: "A"},
		results.Subject{Label: "SCS1302", Grade: "B"},
	))
	require.NoError(t, err)

	err = UpsertStudent(path, "1002", *resultSet(
		results.Subject{Label: "SCS1302", Grade: "C"},
		results.Subject{Label: "SCS1303", Grade: "A+"},
	))
	require.NoError(t, err)

	err = UpsertStudent(path, "1001", *resultSet(
		results.Subject{Label: "SCS1301", Grade: "A-"},
	))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t,
		"Index,SCS1301,SCS1302,SCS1303\n"+
			"1001,A-,,\n"+
			"1002,,C,A+\n",
		string(content),
	)
}

func TestUpsertStudentRejectsForeignSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	err := os.WriteFile(path, []byte("Rank,Name\n1,Alice\n"), 0600)
	require.NoError(t, err)

	err = UpsertStudent(path, "1001", results.ResultSet{})
	require.Error(t, err)
}
