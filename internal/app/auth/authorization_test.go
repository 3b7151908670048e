package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

func TestAuthorizationService(t *testing.T) {
	svc := NewAuthorizationService([]string{"admin", " INSTRUCTOR "})

	admin := Actor{ID: 1, Role: models.RoleAdmin}
	instructor := Actor{ID: 2, Role: models.RoleInstructor}
	student := Actor{ID: 3, Role: models.RoleStudent, StudentID: 30}

	assert.True(t, svc.IsManager(admin))
	assert.True(t, svc.IsManager(instructor))
	assert.False(t, svc.IsManager(student))

	assert.NoError(t, svc.ValidateManager(admin))
	assert.ErrorIs(t, svc.ValidateManager(student), apperrors.ErrPermissionDenied)

	assert.NoError(t, svc.ValidateActsFor(student, 30))
	assert.ErrorIs(t, svc.ValidateActsFor(student, 31), apperrors.ErrPermissionDenied)
	assert.NoError(t, svc.ValidateActsFor(instructor, 31))

	assert.ErrorIs(t, svc.ValidateOverride(student), apperrors.ErrPermissionDenied)
	assert.NoError(t, svc.ValidateOverride(SystemActor))
}
