package services

import (
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/app/schedule"
)

func toCourseRef(c *models.Course) dto.CourseRef {
	return dto.CourseRef{ID: c.ID, Code: c.Code, Name: c.Name}
}

// courseRefs maps ids to refs in order; ids without a course keep only the id
func courseRefs(ids []int64, courses map[int64]*models.Course) []dto.CourseRef {
	refs := make([]dto.CourseRef, 0, len(ids))
	for _, id := range ids {
		if c, ok := courses[id]; ok {
			refs = append(refs, toCourseRef(c))
		} else {
			refs = append(refs, dto.CourseRef{ID: id})
		}
	}
	return refs
}

func courseCodes(refs []dto.CourseRef) []string {
	codes := make([]string, 0, len(refs))
	for _, r := range refs {
		codes = append(codes, r.Code)
	}
	return codes
}

func toCourseSummary(c *models.Course) dto.CourseSummary {
	if c == nil {
		return dto.CourseSummary{}
	}
	return dto.CourseSummary{ID: c.ID, Code: c.Code, Name: c.Name, Credits: c.Credits}
}

func toSlotResponses(slots []models.ScheduleSlot) []dto.ScheduleSlotResponse {
	out := make([]dto.ScheduleSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, dto.ScheduleSlotResponse{
			DayOfWeek:   s.DayOfWeek,
			StartMinute: s.StartMinute,
			EndMinute:   s.EndMinute,
			Room:        s.Room,
			Display:     schedule.FormatSlot(s),
		})
	}
	return out
}

func toOfferingSummary(o *models.ClassOffering) dto.OfferingSummary {
	return dto.OfferingSummary{
		ID:       o.ID,
		TermID:   o.TermID,
		Section:  o.Section,
		Capacity: o.Capacity,
		Status:   string(o.Status),
		Schedule: toSlotResponses(o.Slots),
	}
}

func toEnrollmentResponse(e *models.Enrollment, s *models.Student, o *models.ClassOffering) *dto.EnrollmentResponse {
	return &dto.EnrollmentResponse{
		ID:         e.ID,
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt,
		DroppedAt:  e.DroppedAt,
		DropReason: e.DropReason,
		Student: dto.StudentSummary{
			ID:         s.ID,
			Identifier: s.Identifier,
			FullName:   s.FullName(),
		},
		ClassOffering: toOfferingSummary(o),
		Course:        toCourseSummary(o.Course),
	}
}

func toConflictResponses(r schedule.Result) []dto.ConflictResponse {
	out := make([]dto.ConflictResponse, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		out = append(out, dto.ConflictResponse{ClassOfferingID: c.ClassOfferingID, Label: c.Label, Overlaps: c.Overlaps})
	}
	return out
}
