package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/registrar/internal/app/models/dto"
)

// parseIDParam reads a positive integer path parameter. On failure it writes
// the error response and returns false.
func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, fmt.Sprintf("Invalid %s", name)).
			WithField(name).
			WithDetails(fmt.Sprintf("%s must be a positive number", name))
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}
