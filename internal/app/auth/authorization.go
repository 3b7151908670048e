package auth

import (
	"fmt"
	"strings"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

// Actor is the authenticated caller of a request
type Actor struct {
	ID        int64
	Role      models.RoleType
	StudentID int64 // set for student actors
}

// SystemActor stands in for the caller when authentication is disabled
var SystemActor = Actor{ID: 0, Role: models.RoleAdmin}

// AuthorizationService decides what an actor may do
type AuthorizationService struct {
	managerRoles []models.RoleType
}

// NewAuthorizationService creates a new AuthorizationService. Manager roles
// may change the catalog, grant prerequisite overrides and act for any student.
func NewAuthorizationService(managerRoles []string) *AuthorizationService {
	roles := make([]models.RoleType, 0, len(managerRoles))
	for _, r := range managerRoles {
		roles = append(roles, models.RoleType(strings.ToUpper(strings.TrimSpace(r))))
	}
	return &AuthorizationService{managerRoles: roles}
}

// IsManager reports whether the actor holds a manager role
func (s *AuthorizationService) IsManager(actor Actor) bool {
	for _, r := range s.managerRoles {
		if strings.EqualFold(string(r), string(actor.Role)) {
			return true
		}
	}
	return false
}

// ValidateManager requires a manager role
func (s *AuthorizationService) ValidateManager(actor Actor) error {
	if !s.IsManager(actor) {
		return apperrors.NewForbiddenError(fmt.Sprintf("role %s may not perform this action", actor.Role))
	}
	return nil
}

// ValidateActsFor requires that the actor is a manager or the student themself
func (s *AuthorizationService) ValidateActsFor(actor Actor, studentID int64) error {
	if s.IsManager(actor) {
		return nil
	}
	if actor.Role == models.RoleStudent && actor.StudentID == studentID {
		return nil
	}
	return apperrors.NewForbiddenError("you may only act on your own enrollments")
}

// ValidateOverride requires a manager role to waive prerequisites
func (s *AuthorizationService) ValidateOverride(actor Actor) error {
	if !s.IsManager(actor) {
		return apperrors.NewForbiddenError("only advisors and administrators may override prerequisites")
	}
	return nil
}
