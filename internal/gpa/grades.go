package gpa

// GradePoints maps letter grades on the 4.00 scale to their grade points.
var GradePoints = map[string]float64{
	"A+": 4.00,
	"A":  4.00,
	"A-": 3.70,
	"B+": 3.30,
	"B":  3.00,
	"B-": 2.70,
	"C+": 2.30,
	"C":  2.00,
	"C-": 1.70,
	"D+": 1.30,
	"D":  1.00,
	"E":  0.00,
	"F":  0.00,
}

const (
	// GradeMedical is a medical leave placeholder, superseded by a later real grade.
	GradeMedical = "MC"
	// GradeWithheld scores like GradeMedical.
	GradeWithheld     = "WH"
	GradeNotCompleted = "NC"
	GradeCM           = "CM"
)

// enhancementPrefix marks enhancement subjects, they never count toward a GPA.
const enhancementPrefix = "EN"

// DefaultCredits is the weight of a subject missing from the credit table.
const DefaultCredits = 1.0

// MaxGpa is the highest GPA on the scale.
const MaxGpa = 4.00
