package gpa

import (
	"strings"
)

// Treatment is how a record was counted toward a GPA.
type Treatment string

const (
	// TreatmentCounted is a letter grade, both credits and points count.
	TreatmentCounted Treatment = "counted"
	// TreatmentZeroScored is MC or WH, credits count with zero points.
	TreatmentZeroScored Treatment = "zero-scored"
	// TreatmentEnhancement is an enhancement subject, nothing counts.
	TreatmentEnhancement Treatment = "excluded-enhancement"
	// TreatmentExcluded is NC or CM, nothing counts.
	TreatmentExcluded Treatment = "excluded-grade"
	// TreatmentUnrecognized is a grade outside the grade point table, nothing counts.
	TreatmentUnrecognized Treatment = "unrecognized"
)

// Contribution is what a single record added to a Result.
type Contribution struct {
	Record
	Treatment Treatment
	// Points is credits multiplied by the grade point.
	Points float64
}

// Counts reports whether the contribution's credits were counted.
func (c Contribution) Counts() bool {
	return c.Treatment == TreatmentCounted || c.Treatment == TreatmentZeroScored
}

// Result is the GPA of one student.
type Result struct {
	Gpa          float64
	TotalCredits float64
	GradePoints  float64
	Details      []Contribution
}

// Classify decides how a record counts toward a GPA.
func Classify(r Record) Contribution {
	grade := strings.ToUpper(strings.TrimSpace(r.Grade))
	c := Contribution{Record: r}

	switch {
	case strings.HasPrefix(strings.ToUpper(r.Code), enhancementPrefix):
		c.Treatment = TreatmentEnhancement
	case grade == GradeNotCompleted || grade == GradeCM:
		c.Treatment = TreatmentExcluded
	case grade == GradeMedical || grade == GradeWithheld:
		c.Treatment = TreatmentZeroScored
	default:
		points, ok := GradePoints[grade]
		if !ok {
			c.Treatment = TreatmentUnrecognized
			break
		}
		c.Treatment = TreatmentCounted
		c.Points = r.Credits * points
	}

	return c
}

// Score computes the GPA of `records`, a student without counted credits has
// a GPA of exactly 0.
func Score(records []Record) Result {
	out := Result{Details: make([]Contribution, len(records))}

	for i, r := range records {
		c := Classify(r)
		out.Details[i] = c
		if !c.Counts() {
			continue
		}
		out.GradePoints += c.Points
		out.TotalCredits += c.Credits
	}

	if out.TotalCredits > 0 {
		out.Gpa = out.GradePoints / out.TotalCredits
	}
	return out
}
