package roster

import (
	"os"
	"path/filepath"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/gpa"
	"resultfetcher/internal/portal"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadCredits(t *testing.T) {
	table := []struct {
		name     string
		input    string
		expected gpa.CreditTable
		warnings int
	}{
		{
			name:  "header",
			input: "subject_code,credits\nSCS1301,3\nSCS1302, 2.5\n",
			expected: gpa.CreditTable{
				"SCS1301": 3,
				"SCS1302": 2.5,
			},
		},
		{
			name:  "no header",
			input: "SCS1301,3\nSCS1302,2\n",
			expected: gpa.CreditTable{
				"SCS1301": 3,
				"SCS1302": 2,
			},
		},
		{
			name:  "malformed and short rows",
			input: "code,weight\nSCS1301,three\nSCS1302\nSCS1303,-1\nSCS1304,1\n",
			expected: gpa.CreditTable{
				"SCS1304": 1,
			},
			warnings: 2,
		},
		{
			name:  "non-finite weights",
			input: "code,credits\nSCS1301,NaN\nSCS1302,Inf\nSCS1303,-Inf\nSCS1304,2\n",
			expected: gpa.CreditTable{
				"SCS1304": 2,
			},
			warnings: 3,
		},
		{
			name:     "empty",
			input:    "",
			expected: gpa.CreditTable{},
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			rec := &telemetry.Recorder{}
			credits, err := ReadCredits(strings.NewReader(test.input), rec)
			require.NoError(t, err)
			require.Equal(t, test.expected, credits)
			require.Len(t, rec.Warnings("roster.read-credits"), test.warnings)
		})
	}
}

func TestLoadCreditsMissingFile(t *testing.T) {
	rec := &telemetry.Recorder{}
	credits, err := LoadCredits(filepath.Join(t.TempDir(), "credits.csv"), rec)
	require.NoError(t, err)
	require.Empty(t, credits)
	require.Len(t, rec.Warnings("roster.read-credits"), 1)
}

func TestReadStudents(t *testing.T) {
	table := []struct {
		name     string
		input    string
		expected []Student
		warnings int
	}{
		{
			name:  "header",
			input: "index,nic,email\n23000123,200012345678,a@example.com\n23000124 , 200012345679\n",
			expected: []Student{
				{Credentials: portal.Credentials{Index: "23000123", Secret: "200012345678"}, Email: "a@example.com"},
				{Credentials: portal.Credentials{Index: "23000124", Secret: "200012345679"}},
			},
		},
		{
			name:  "first row is data",
			input: "23000123,200012345678\n23000124,200012345679,b@example.com\n",
			expected: []Student{
				{Credentials: portal.Credentials{Index: "23000123", Secret: "200012345678"}},
				{Credentials: portal.Credentials{Index: "23000124", Secret: "200012345679"}, Email: "b@example.com"},
			},
		},
		{
			name:  "short rows",
			input: "23000123\n23000124,200012345679\n",
			expected: []Student{
				{Credentials: portal.Credentials{Index: "23000124", Secret: "200012345679"}},
			},
			warnings: 1,
		},
		{
			name:  "duplicate index",
			input: "23000123,old\n23000124,200012345679\n23000123,200012345678,a@example.com\n",
			expected: []Student{
				{Credentials: portal.Credentials{Index: "23000123", Secret: "200012345678"}, Email: "a@example.com"},
				{Credentials: portal.Credentials{Index: "23000124", Secret: "200012345679"}},
			},
			warnings: 1,
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			rec := &telemetry.Recorder{}
			students, err := ReadStudents(strings.NewReader(test.input), rec)
			require.NoError(t, err)
			require.Equal(t, test.expected, students)
			require.Len(t, rec.Warnings("roster.read-students"), test.warnings)
		})
	}
}

func TestUnique(t *testing.T) {
	students, repeated := Unique([]Student{
		{Credentials: portal.Credentials{Index: "1001", Secret: "a"}},
		{Credentials: portal.Credentials{Index: "1002", Secret: "b"}},
		{Credentials: portal.Credentials{Index: "1001", Secret: "c"}},
		{Credentials: portal.Credentials{Index: "1001", Secret: "d"}, Email: "x@example.com"},
	})
	require.Equal(t, []Student{
		{Credentials: portal.Credentials{Index: "1001", Secret: "d"}, Email: "x@example.com"},
		{Credentials: portal.Credentials{Index: "1002", Secret: "b"}},
	}, students)
	require.Equal(t, []string{"1001"}, repeated)

	students, repeated = Unique(nil)
	require.Empty(t, students)
	require.Empty(t, repeated)
}

func TestLoadStudents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.csv")
	err := os.WriteFile(path, []byte("index,nic\n23000123,200012345678\n"), 0600)
	require.NoError(t, err)

	students, err := LoadStudents(path, &telemetry.Recorder{})
	require.NoError(t, err)
	require.Len(t, students, 1)

	_, err = LoadStudents(filepath.Join(t.TempDir(), "missing.csv"), &telemetry.Recorder{})
	require.Error(t, err)
}

func TestAddress(t *testing.T) {
	require.Equal(t, "a@example.com", Student{Email: "a@example.com"}.Address("stu.example.com"))
	require.Equal(t, "1001@stu.example.com", Student{Credentials: portal.Credentials{Index: "1001"}}.Address("stu.example.com"))
}
