// Package schedule detects overlaps between weekly class meeting times.
package schedule

import (
	"fmt"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ValidateSlot rejects slots outside 0 <= start < end <= 1440 or with a day
// outside 0..6.
func ValidateSlot(slot models.ScheduleSlot) error {
	if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
		return apperrors.NewBadRequestError(fmt.Sprintf("day of week %d is out of range 0-6", slot.DayOfWeek))
	}
	if slot.StartMinute < 0 || slot.EndMinute > models.MinutesPerDay || slot.StartMinute >= slot.EndMinute {
		return apperrors.NewBadRequestError(fmt.Sprintf("invalid time interval %d-%d", slot.StartMinute, slot.EndMinute))
	}
	return nil
}

// Overlaps reports whether two slots meet on the same day with intersecting
// half-open minute intervals.
func Overlaps(a, b models.ScheduleSlot) bool {
	return a.DayOfWeek == b.DayOfWeek &&
		a.StartMinute < b.EndMinute &&
		b.StartMinute < a.EndMinute
}

// FormatSlot renders a slot as "Mon 09:00-10:30".
func FormatSlot(slot models.ScheduleSlot) string {
	day := "?"
	if slot.DayOfWeek >= 0 && slot.DayOfWeek < len(dayNames) {
		day = dayNames[slot.DayOfWeek]
	}
	return fmt.Sprintf("%s %s-%s", day, formatMinute(slot.StartMinute), formatMinute(slot.EndMinute))
}

func formatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// OfferingSlots groups the meeting times of one offering the student already holds.
type OfferingSlots struct {
	ClassOfferingID int64
	Label           string // e.g. "CS101-A"
	Slots           []models.ScheduleSlot
}

// Collision names an offering that overlaps the candidate.
type Collision struct {
	ClassOfferingID int64    `json:"classOfferingId"`
	Label           string   `json:"label"`
	Overlaps        []string `json:"overlaps"`
}

// Result is the outcome of HasConflict.
type Result struct {
	Conflict  bool        `json:"conflict"`
	Conflicts []Collision `json:"conflicts"`
}

// Labels returns the labels of all colliding offerings.
func (r Result) Labels() []string {
	labels := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		labels = append(labels, c.Label)
	}
	return labels
}

// HasConflict compares every candidate slot with every slot of every existing
// offering. Offerings appear in the result in input order, each once.
func HasConflict(candidate []models.ScheduleSlot, existing []OfferingSlots) Result {
	result := Result{Conflicts: []Collision{}}
	if len(candidate) == 0 {
		return result
	}

	for _, offering := range existing {
		var overlaps []string
		for _, c := range candidate {
			for _, e := range offering.Slots {
				if Overlaps(c, e) {
					overlaps = append(overlaps, fmt.Sprintf("%s overlaps %s", FormatSlot(c), FormatSlot(e)))
				}
			}
		}
		if len(overlaps) > 0 {
			result.Conflicts = append(result.Conflicts, Collision{
				ClassOfferingID: offering.ClassOfferingID,
				Label:           offering.Label,
				Overlaps:        overlaps,
			})
		}
	}

	result.Conflict = len(result.Conflicts) > 0
	return result
}
