package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"resultfetcher/internal/batch"
	"resultfetcher/internal/results"
	"slices"
	"sort"
	"strconv"
)

var rankedColumns = []string{"Rank", "Name", "Index", "Email", "GPA", "Credits"}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

// SubjectLabels returns the union of the raw subject labels of `ranked`, sorted.
func SubjectLabels(ranked []batch.Ranked) []string {
	seen := map[string]struct{}{}
	for _, r := range ranked {
		if r.Results == nil {
			continue
		}
		for _, subject := range r.Results.Subjects {
			seen[subject.Label] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// WriteRanked writes the ranked sheet: one row per student in rank order and
// one column per subject any student has a grade for. Students without an
// e-mail get <index>@<domain>.
func WriteRanked(w io.Writer, ranked []batch.Ranked, domain string) error {
	labels := SubjectLabels(ranked)

	writer := csv.NewWriter(w)
	err := writer.Write(append(slices.Clone(rankedColumns), labels...))
	if err != nil {
		return err
	}

	for _, r := range ranked {
		row := []string{
			strconv.Itoa(r.Rank),
			r.Name,
			r.Student.Index,
			r.Student.Address(domain),
			formatFloat(r.Gpa.Gpa),
			formatFloat(r.Gpa.TotalCredits),
		}
		for _, label := range labels {
			grade := ""
			if r.Results != nil {
				grade, _ = r.Results.Grade(label)
			}
			row = append(row, grade)
		}
		err = writer.Write(row)
		if err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteRankedFile writes the ranked sheet to `path`, replacing it.
func WriteRankedFile(path string, ranked []batch.Ranked, domain string) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteRanked(w, ranked, domain)
	})
}

func writeFile(path string, write func(w io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		err := os.MkdirAll(dir, 0777)
		if err != nil {
			return err
		}
	}

	// written next to the target then renamed so readers never see half a sheet
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = write(tmp)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

const indexColumn = "Index"

// sheet is a per-student table keyed by index with one column per subject.
type sheet struct {
	columns []string
	rows    [][]string
}

func readSheet(path string) (sheet, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return sheet{columns: []string{indexColumn}}, nil
	}
	if err != nil {
		return sheet{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return sheet{}, fmt.Errorf("read sheet %s: %w", path, err)
	}
	if len(records) == 0 {
		return sheet{columns: []string{indexColumn}}, nil
	}
	if records[0][0] != indexColumn {
		return sheet{}, fmt.Errorf("read sheet %s: first column is %q, expected %q", path, records[0][0], indexColumn)
	}
	return sheet{columns: records[0], rows: records[1:]}, nil
}

func (s *sheet) upsert(index string, rs results.ResultSet) {
	for _, subject := range rs.Subjects {
		if !slices.Contains(s.columns, subject.Label) {
			s.columns = append(s.columns, subject.Label)
		}
	}

	row := make([]string, len(s.columns))
	row[0] = index
	for i, column := range s.columns[1:] {
		row[i+1], _ = rs.Grade(column)
	}

	for i, existing := range s.rows {
		if len(existing) > 0 && existing[0] == index {
			s.rows[i] = row
			return
		}
	}
	s.rows = append(s.rows, row)
}

func (s sheet) write(w io.Writer) error {
	writer := csv.NewWriter(w)
	err := writer.Write(s.columns)
	if err != nil {
		return err
	}
	for _, row := range s.rows {
		// rows written before new columns were added are padded
		for len(row) < len(s.columns) {
			row = append(row, "")
		}
		err = writer.Write(row)
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// UpsertStudent records the grades of one student in the sheet at `path`,
// creating it if needed. Subjects not seen before become new columns and an
// existing row for `index` is replaced.
func UpsertStudent(path, index string, rs results.ResultSet) error {
	s, err := readSheet(path)
	if err != nil {
		return err
	}
	s.upsert(index, rs)
	return writeFile(path, s.write)
}
