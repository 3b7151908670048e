package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/registrar/internal/app/models/dto"
)

func init() {
	// Report JSON and query names in validation errors instead of Go field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	}
}

// HandleBindingError answers a request whose body or query failed to bind
func HandleBindingError(c *gin.Context, err error) {
	detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request")

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		errs := dto.NewValidationErrors()
		for _, fe := range verrs {
			errs.AddError(fe.Field(), formatValidationError(fe))
		}
		detail.Message = errs.Errors[0].Message
		detail = detail.WithField(errs.Errors[0].Field).WithDetails(errs.Errors)
	} else {
		detail = detail.WithDetails(err.Error())
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + e.Param()
	case "max":
		return field + " must be at most " + e.Param()
	case "gt":
		return field + " must be greater than " + e.Param()
	case "oneof":
		return field + " must be one of: " + e.Param()
	default:
		return field + " validation failed: " + e.Tag()
	}
}
