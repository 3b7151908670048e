package seed

import (
	"time"
)

// Catalog is reference data for a registrar installation. Records point at
// each other by student identifier, course code and term name.
type Catalog struct {
	Terms      []TermSpec
	Courses    []CourseSpec
	Curriculum map[string][]string // curriculum name -> course codes
	Offerings  []OfferingSpec
	Students   []StudentSpec
}

// TermSpec describes a term. Registration bounds are offsets from the load time.
type TermSpec struct {
	Name        string
	Start, End  time.Time
	Current     bool
	OpensAfter  time.Duration
	ClosesAfter time.Duration
}

// CourseSpec describes a course and its direct prerequisites
type CourseSpec struct {
	Code          string
	Name          string
	Credits       int
	Prerequisites []string
}

// SlotSpec is one weekly meeting, times as "HH:MM"
type SlotSpec struct {
	Day        time.Weekday
	Start, End string
	Room       string
}

// OfferingSpec describes a section of a course in a term
type OfferingSpec struct {
	Course   string
	Term     string
	Section  string
	Capacity int
	Closed   bool
	Slots    []SlotSpec
}

// StudentSpec describes a student with completed courses and holds
type StudentSpec struct {
	Identifier string
	FirstName  string
	LastName   string
	// Completed course codes, recorded in CompletedTerm
	Completed     []string
	CompletedTerm string
	Holds         []string
}

// DemoCatalog is a small computer science catalog used for local runs
func DemoCatalog() Catalog {
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	mw := func(start, end, room string) []SlotSpec {
		return []SlotSpec{{time.Monday, start, end, room}, {time.Wednesday, start, end, room}}
	}
	tt := func(start, end, room string) []SlotSpec {
		return []SlotSpec{{time.Tuesday, start, end, room}, {time.Thursday, start, end, room}}
	}

	return Catalog{
		Terms: []TermSpec{
			{Name: "Spring 2025", Start: date(2025, time.February, 3), End: date(2025, time.June, 13)},
			{Name: "Fall 2025", Start: date(2025, time.September, 15), End: date(2026, time.January, 23), Current: true,
				OpensAfter: -7 * 24 * time.Hour, ClosesAfter: 60 * 24 * time.Hour},
		},
		Courses: []CourseSpec{
			{Code: "MATH101", Name: "Calculus I", Credits: 6},
			{Code: "MATH201", Name: "Calculus II", Credits: 6, Prerequisites: []string{"MATH101"}},
			{Code: "MATH301", Name: "Real Analysis", Credits: 6, Prerequisites: []string{"MATH201"}},
			{Code: "CS101", Name: "Introduction to Programming", Credits: 5},
			{Code: "CS201", Name: "Data Structures", Credits: 5, Prerequisites: []string{"CS101", "MATH101"}},
			{Code: "CS301", Name: "Algorithms", Credits: 5, Prerequisites: []string{"CS201", "MATH201"}},
			{Code: "PHYS101", Name: "Physics I", Credits: 6, Prerequisites: []string{"MATH101"}},
		},
		Curriculum: map[string][]string{
			"Computer Science BSc": {"MATH101", "MATH201", "CS101", "CS201", "CS301"},
		},
		Offerings: []OfferingSpec{
			{Course: "MATH101", Term: "Spring 2025", Section: "A", Capacity: 60, Closed: true, Slots: mw("09:00", "10:30", "M-101")},
			{Course: "CS101", Term: "Spring 2025", Section: "A", Capacity: 40, Closed: true, Slots: tt("09:00", "10:15", "C-201")},
			{Course: "MATH201", Term: "Spring 2025", Section: "A", Capacity: 40, Closed: true, Slots: mw("11:00", "12:30", "M-101")},
			{Course: "CS201", Term: "Spring 2025", Section: "A", Capacity: 40, Closed: true, Slots: tt("13:00", "14:15", "C-201")},

			{Course: "MATH101", Term: "Fall 2025", Section: "A", Capacity: 60, Slots: mw("09:00", "10:30", "M-101")},
			{Course: "MATH201", Term: "Fall 2025", Section: "A", Capacity: 40, Slots: mw("10:00", "11:30", "M-102")},
			{Course: "MATH301", Term: "Fall 2025", Section: "A", Capacity: 25, Slots: tt("14:00", "15:30", "M-201")},
			{Course: "CS101", Term: "Fall 2025", Section: "A", Capacity: 30, Slots: tt("09:00", "10:15", "C-201")},
			{Course: "CS101", Term: "Fall 2025", Section: "B", Capacity: 2, Slots: []SlotSpec{{time.Friday, "13:00", "16:00", "C-Lab"}}},
			{Course: "CS201", Term: "Fall 2025", Section: "A", Capacity: 30, Slots: tt("10:30", "11:45", "C-202")},
			{Course: "CS301", Term: "Fall 2025", Section: "A", Capacity: 20, Slots: []SlotSpec{{time.Monday, "14:00", "17:00", "C-301"}}},
			{Course: "PHYS101", Term: "Fall 2025", Section: "A", Capacity: 50, Closed: true, Slots: mw("13:00", "14:30", "P-001")},
		},
		Students: []StudentSpec{
			{Identifier: "20250001", FirstName: "Ada", LastName: "Lovelace", Completed: []string{"MATH101", "CS101"}, CompletedTerm: "Spring 2025"},
			{Identifier: "20250002", FirstName: "Alan", LastName: "Turing", Completed: []string{"MATH101", "MATH201", "CS101", "CS201"}, CompletedTerm: "Spring 2025"},
			{Identifier: "20250003", FirstName: "Grace", LastName: "Hopper", Holds: []string{"FINANCIAL"}},
			{Identifier: "20250004", FirstName: "Edsger", LastName: "Dijkstra"},
		},
	}
}
