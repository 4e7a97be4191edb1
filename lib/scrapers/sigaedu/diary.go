package sigaedu

import (
	"strconv"
	"strings"

	"sigaedu-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

const (
	bimonthlySlots  = 4
	trimonthlySlots = 3
)

// PeriodGrade is one grading-period entry of a course. Value is nil
// when the portal shows a label without a numeric grade.
type PeriodGrade struct {
	Label string
	Value *float64
}

// Course is one row of the grade report.
type Course struct {
	Name string
	// period grades in the order the report listed them
	Grades       []PeriodGrade
	FinalAverage float64
	Status       string
}

// NewCourse parses the raw per-period grade strings of a report row.
// A later grade with an already-seen label overwrites the earlier
// value but keeps its original position.
func NewCourse(name string, rawGrades []string, finalAverage float64, status string) Course {
	c := Course{
		Name:         name,
		FinalAverage: finalAverage,
		Status:       status,
	}
	for _, raw := range rawGrades {
		label, value := parseGrade(raw)

		replaced := false
		for i := range c.Grades {
			if c.Grades[i].Label == label {
				c.Grades[i].Value = value
				replaced = true
				break
			}
		}
		if !replaced {
			c.Grades = append(c.Grades, PeriodGrade{Label: label, Value: value})
		}
	}
	return c
}

// parseGrade splits a raw grade string into its period label and
// value. The shape is disambiguated by counting the literal " - "
// separator:
//
//	2: "1 - 1 Bimestre - Média: 8.5" (leading row number discarded)
//	1: "1º trimestre - Média: 8.5"
//	0: the whole string is the label, there is no value
func parseGrade(raw string) (string, *float64) {
	switch strings.Count(raw, " - ") {
	case 2:
		parts := strings.SplitN(raw, " - ", 3)
		return parts[1], parseGradeValue(parts[2])
	case 1:
		parts := strings.SplitN(raw, " - ", 2)
		return parts[0], parseGradeValue(parts[1])
	}
	return raw, nil
}

func parseGradeValue(raw string) *float64 {
	raw = strings.TrimPrefix(raw, "Média: ")
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		// an unparseable value is treated the same as a missing one
		return nil
	}
	return &value
}

// NormalizedAverages classifies the course as bimonthly or
// trimonthly by whichever of "bimestre"/"trimestre" occurs in
// strictly more grade labels (case-insensitively), and returns that
// mode's values in order, right-padded with nils to 4 or 3 slots.
// ok is false when the counts tie (including both zero), a normal
// outcome callers must branch on.
func (c Course) NormalizedAverages() (values []*float64, ok bool) {
	var bimonthly []*float64
	var trimonthly []*float64
	for _, g := range c.Grades {
		label := strings.ToLower(g.Label)
		if strings.Contains(label, "bimestre") {
			bimonthly = append(bimonthly, g.Value)
		}
		if strings.Contains(label, "trimestre") {
			trimonthly = append(trimonthly, g.Value)
		}
	}

	switch {
	case len(bimonthly) > len(trimonthly):
		return padGrades(bimonthly, bimonthlySlots), true
	case len(trimonthly) > len(bimonthly):
		return padGrades(trimonthly, trimonthlySlots), true
	}
	return nil, false
}

func padGrades(values []*float64, slots int) []*float64 {
	for len(values) < slots {
		values = append(values, nil)
	}
	return values
}

// Diary is the read-only snapshot a term's grade report parses into.
// Courses are keyed by name, a duplicate name overwrites the earlier
// row (last write wins). Enumeration order is unspecified.
type Diary struct {
	courses map[string]Course
}

func NewDiary() *Diary {
	return &Diary{courses: map[string]Course{}}
}

func (d *Diary) Add(course Course) {
	d.courses[course.Name] = course
}

func (d *Diary) Course(name string) (Course, bool) {
	course, ok := d.courses[name]
	return course, ok
}

func (d *Diary) Remove(name string) {
	delete(d.courses, name)
}

func (d *Diary) Courses() []Course {
	out := make([]Course, 0, len(d.courses))
	for _, course := range d.courses {
		out = append(out, course)
	}
	return out
}

func (d *Diary) Len() int {
	return len(d.courses)
}

// Closest returns the course whose normalized name is most similar
// to the query. The scraped names come out of a fixed-offset
// substring of the raw markup, so exact lookup by a hand-typed name
// is brittle.
func (d *Diary) Closest(name string) (Course, bool) {
	query := textutil.NormalizeName(name)

	var best Course
	var bestSimilarity float64
	for _, course := range d.courses {
		similarity := matchr.JaroWinkler(query, textutil.NormalizeName(course.Name), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = course
		}
	}

	if bestSimilarity == 0 {
		return Course{}, false
	}
	return best, true
}
