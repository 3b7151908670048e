package models

// MinutesPerDay bounds ScheduleSlot end minutes.
const MinutesPerDay = 24 * 60

// ScheduleSlot is a recurring weekly interval [StartMinute, EndMinute) on
// DayOfWeek, where 0 is Sunday.
type ScheduleSlot struct {
	ID              int64  `json:"id" db:"id"`
	ClassOfferingID int64  `json:"classOfferingId" db:"class_offering_id"`
	DayOfWeek       int    `json:"dayOfWeek" db:"day_of_week"`
	StartMinute     int    `json:"startMinute" db:"start_minute"`
	EndMinute       int    `json:"endMinute" db:"end_minute"`
	Room            string `json:"room,omitempty" db:"room"`
}
