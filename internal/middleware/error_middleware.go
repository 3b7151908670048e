package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

// HandleAPIError translates a service error into the JSON error envelope
func HandleAPIError(c *gin.Context, err error) {
	status, code := statusFor(err)
	kind := apperrors.KindOf(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal failures never leak their cause to the client.
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		message = "Internal server error"
	}

	detail := dto.NewErrorDetail(code, message).WithKind(string(kind))
	if details := apperrors.DetailsOf(err); len(details) > 0 {
		detail = detail.WithDetails(details)
	}
	c.JSON(status, dto.NewErrorResponse(detail))
}

func statusFor(err error) (int, dto.ErrorCode) {
	switch {
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.ErrorCodeExpiredToken
	case apperrors.Is(err, apperrors.ErrTokenInvalid, apperrors.ErrInvalidFormat):
		return http.StatusUnauthorized, dto.ErrorCodeInvalidToken
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, dto.ErrorCodeResourceNotFound
	case errors.Is(err, apperrors.ErrCycleDetected):
		return http.StatusConflict, dto.ErrorCodeCycleDetected
	case errors.Is(err, apperrors.ErrResourceExhausted):
		return http.StatusConflict, dto.ErrorCodeClassFull
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, dto.ErrorCodeConflict
	case errors.Is(err, apperrors.ErrFailedPrecondition):
		return http.StatusUnprocessableEntity, dto.ErrorCodePrerequisitesUnmet
	case errors.Is(err, apperrors.ErrPermissionDenied):
		if _, hold := apperrors.DetailsOf(err)["holdTypes"]; hold {
			return http.StatusForbidden, dto.ErrorCodeRegistrationHold
		}
		return http.StatusForbidden, dto.ErrorCodeForbidden
	case errors.Is(err, apperrors.ErrInvalidState):
		return http.StatusUnprocessableEntity, dto.ErrorCodeInvalidState
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, dto.ErrorCodeValidationFailed
	default:
		return http.StatusInternalServerError, dto.ErrorCodeInternalServer
	}
}
