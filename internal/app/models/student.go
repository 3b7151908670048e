package models

// Student defines the student model based on the 'students' table
type Student struct {
	ID         int64  `json:"id" db:"id" example:"1"`
	Identifier string `json:"identifier" db:"identifier" example:"20240012"` // Student number
	FirstName  string `json:"firstName" db:"first_name" example:"Ada"`
	LastName   string `json:"lastName" db:"last_name" example:"Lovelace"`
}

// FullName returns "First Last"
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
