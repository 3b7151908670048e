package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appAuth "github.com/yigit/registrar/internal/app/auth"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/pkg/apperrors"
	"github.com/yigit/registrar/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestHandleAPIErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
		kind   apperrors.Kind
	}{
		{"not found", apperrors.NewResourceNotFoundError("student 9 not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound, apperrors.KindNotFound},
		{"duplicate", apperrors.NewConflictError("already enrolled"), http.StatusConflict, dto.ErrorCodeConflict, apperrors.KindConflict},
		{"cycle", apperrors.NewCycleDetectedError("cycle"), http.StatusConflict, dto.ErrorCodeCycleDetected, apperrors.KindCycleDetected},
		{"full", apperrors.NewResourceExhaustedError("full"), http.StatusConflict, dto.ErrorCodeClassFull, apperrors.KindResourceExhausted},
		{"prerequisites", apperrors.NewFailedPreconditionError("missing"), http.StatusUnprocessableEntity, dto.ErrorCodePrerequisitesUnmet, apperrors.KindFailedPrecondition},
		{"hold", apperrors.NewForbiddenError("hold").WithDetail("holdTypes", []string{"FINANCIAL"}), http.StatusForbidden, dto.ErrorCodeRegistrationHold, apperrors.KindForbidden},
		{"role", apperrors.NewForbiddenError("role"), http.StatusForbidden, dto.ErrorCodeForbidden, apperrors.KindForbidden},
		{"closed", apperrors.NewInvalidStateError("closed"), http.StatusUnprocessableEntity, dto.ErrorCodeInvalidState, apperrors.KindInvalidState},
		{"bad request", apperrors.NewBadRequestError("bad"), http.StatusBadRequest, dto.ErrorCodeValidationFailed, apperrors.KindInvalidArgument},
		{"expired", apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, apperrors.KindInternal},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, apperrors.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, string(tt.kind), resp.Error.Kind)
		})
	}
}

func TestHandleAPIErrorHidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, errors.New("password=hunter2"))

	resp := decodeError(t, w)
	assert.Equal(t, "Internal server error", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestHandleAPIErrorCarriesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, apperrors.NewFailedPreconditionError("missing prerequisites: MATH101").
		WithDetail("missingPrerequisites", []string{"MATH101"}))

	resp := decodeError(t, w)
	assert.Equal(t, "missing prerequisites: MATH101", resp.Error.Message)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"MATH101"}, details["missingPrerequisites"])
}

func newAuthRouter(enabled bool) (*gin.Engine, *auth.JWTService) {
	jwtSvc := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", TokenIssuer: "registrar"})
	m := NewAuthMiddleware(jwtSvc, appAuth.NewAuthorizationService([]string{"ADMIN", "INSTRUCTOR"}), enabled)

	router := gin.New()
	router.Use(m.JWTAuth())
	router.GET("/whoami", func(c *gin.Context) {
		actor := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"actorId": actor.ID, "role": actor.Role, "studentId": actor.StudentID})
	})
	router.POST("/manage", m.ManagerRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, jwtSvc
}

func TestJWTAuth(t *testing.T) {
	router, jwtSvc := newAuthRouter(true)

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeUnauthorized, decodeError(t, w).Error.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid student token", func(t *testing.T) {
		token, err := jwtSvc.GenerateToken(11, "STUDENT", 5, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"actorId":11,"role":"STUDENT","studentId":5}`, w.Body.String())
	})

	t.Run("manager route", func(t *testing.T) {
		student, err := jwtSvc.GenerateToken(11, "STUDENT", 5, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/manage", nil)
		req.Header.Set("Authorization", "Bearer "+student)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)

		admin, err := jwtSvc.GenerateToken(1, "ADMIN", 0, time.Minute)
		require.NoError(t, err)
		req = httptest.NewRequest(http.MethodPost, "/manage", nil)
		req.Header.Set("Authorization", "Bearer "+admin)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestJWTAuthDisabled(t *testing.T) {
	router, _ := newAuthRouter(false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actorId":0,"role":"ADMIN","studentId":0}`, w.Body.String())
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger(zerolog.Nop()))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestHandleBindingErrorUsesJSONNames(t *testing.T) {
	type body struct {
		StudentID int64 `json:"studentId" binding:"required,gt=0"`
	}
	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			HandleBindingError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"studentId":0}`)))

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)
	assert.Equal(t, "studentId", resp.Error.Field)
	assert.Equal(t, "studentId is required", resp.Error.Message)
}
