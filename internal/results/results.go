package results

// Subject is a single row scraped from a results table, Label is the raw
// subject label as it appears on the page (ex. "SCS1301 Data Structures").
type Subject struct {
	Label string
	Grade string
}

// ResultSet is everything scraped from one student's results page.
// Subjects are kept in the order they were first seen on the page.
type ResultSet struct {
	// Name is empty when the page did not carry a student name.
	Name     string
	Subjects []Subject
}

// Set records `grade` for `label`, an existing label keeps its position but
// takes the new grade.
func (r *ResultSet) Set(label, grade string) {
	for i := range r.Subjects {
		if r.Subjects[i].Label == label {
			r.Subjects[i].Grade = grade
			return
		}
	}
	r.Subjects = append(r.Subjects, Subject{Label: label, Grade: grade})
}

func (r ResultSet) Grade(label string) (string, bool) {
	for _, s := range r.Subjects {
		if s.Label == label {
			return s.Grade, true
		}
	}
	return "", false
}

func (r ResultSet) Len() int {
	return len(r.Subjects)
}

// Clone returns a copy that shares no memory with r.
func (r ResultSet) Clone() ResultSet {
	subjects := make([]Subject, len(r.Subjects))
	copy(subjects, r.Subjects)
	return ResultSet{Name: r.Name, Subjects: subjects}
}
