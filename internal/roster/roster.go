package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/gpa"
	"resultfetcher/internal/portal"
	"slices"
	"strconv"
	"strings"
)

const (
	report_roster_read_credits  = "roster.read-credits"
	report_roster_read_students = "roster.read-students"
)

// Student is one row of a batch file.
type Student struct {
	portal.Credentials
	// Email is empty when the row had none.
	Email string
}

// Address returns the student's e-mail, or <index>@<domain> when the row had none.
func (s Student) Address(domain string) string {
	if s.Email != "" {
		return s.Email
	}
	return fmt.Sprintf("%s@%s", s.Index, domain)
}

func readRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	return rows, nil
}

func parseWeight(value string) (float64, error) {
	weight, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0, fmt.Errorf("weight %q is not a finite number", value)
	}
	if weight < 0 {
		return 0, fmt.Errorf("negative weight %v", weight)
	}
	return weight, nil
}

// ReadCredits reads a (code, weight) table. The first row is treated as a
// header unless its second column parses as a number.
func ReadCredits(r io.Reader, tel telemetry.API) (gpa.CreditTable, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, fmt.Errorf("read credits: %w", err)
	}

	table := gpa.CreditTable{}
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		weight, err := parseWeight(row[1])
		if err != nil {
			if i == 0 {
				continue
			}
			tel.ReportWarning(report_roster_read_credits, "malformed weight", fmt.Sprintf("row=%d", i+1), row[0], err)
			continue
		}
		table[row[0]] = weight
	}
	return table, nil
}

// LoadCredits reads the credit table at `path`, a missing file gives an empty
// table so every subject falls back to the default weight.
func LoadCredits(path string, tel telemetry.API) (gpa.CreditTable, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		tel.ReportWarning(report_roster_read_credits, "credit table not found, using default weights", path)
		return gpa.CreditTable{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := ReadCredits(f, tel)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		tel.ReportWarning(report_roster_read_credits, "credit table is empty", path)
	}
	return table, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ReadStudents reads (index, secret, [email]) rows. The first row is a header
// unless its first column is made of digits only. Repeated indexes are merged
// by Unique.
func ReadStudents(r io.Reader, tel telemetry.API) ([]Student, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, fmt.Errorf("read students: %w", err)
	}

	var students []Student
	for i, row := range rows {
		if i == 0 && len(row) > 0 && !isDigits(row[0]) {
			tel.ReportDebug("skipping header row", row)
			continue
		}
		if len(row) < 2 {
			tel.ReportWarning(report_roster_read_students, "row has too few columns", fmt.Sprintf("row=%d", i+1))
			continue
		}

		student := Student{
			Credentials: portal.Credentials{Index: row[0], Secret: row[1]},
		}
		if len(row) > 2 {
			student.Email = row[2]
		}
		students = append(students, student)
	}

	students, repeated := Unique(students)
	for _, index := range repeated {
		tel.ReportWarning(report_roster_read_students, "duplicate index, keeping the later row", index)
	}
	return students, nil
}

// Unique merges students sharing an index: each index keeps the position of
// its first row and the values of its last one. The repeated indexes are
// returned once each, in order of first repetition.
func Unique(students []Student) ([]Student, []string) {
	out := make([]Student, 0, len(students))
	seen := map[string]int{}
	var repeated []string
	for _, student := range students {
		pos, ok := seen[student.Index]
		if !ok {
			seen[student.Index] = len(out)
			out = append(out, student)
			continue
		}
		if !slices.Contains(repeated, student.Index) {
			repeated = append(repeated, student.Index)
		}
		out[pos] = student
	}
	return out, repeated
}

func LoadStudents(path string, tel telemetry.API) ([]Student, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStudents(f, tel)
}
