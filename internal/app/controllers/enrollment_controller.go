package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	appAuth "github.com/yigit/registrar/internal/app/auth"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/app/services"
	"github.com/yigit/registrar/internal/middleware"
)

// EnrollmentController handles enrollment operations and the student previews
type EnrollmentController struct {
	enrollmentService *services.EnrollmentService
	authz             *appAuth.AuthorizationService
	timeout           time.Duration
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(enrollmentService *services.EnrollmentService, authz *appAuth.AuthorizationService, timeout time.Duration) *EnrollmentController {
	return &EnrollmentController{
		enrollmentService: enrollmentService,
		authz:             authz,
		timeout:           timeout,
	}
}

func (c *EnrollmentController) requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx.Request.Context())
	}
	return context.WithTimeout(ctx.Request.Context(), c.timeout)
}

// Enroll handles enrolling a student into a class offering
// @Summary Enroll a student
// @Description Enrolls a student into a class offering after hold, capacity, prerequisite and schedule checks
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EnrollRequest true "Enrollment information"
// @Success 201 {object} dto.APIResponse{data=dto.EnrollmentResponse} "Student enrolled"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Registration hold or not allowed"
// @Failure 404 {object} dto.ErrorResponse "Student or class offering not found"
// @Failure 409 {object} dto.ErrorResponse "Duplicate enrollment, schedule conflict or class full"
// @Failure 422 {object} dto.ErrorResponse "Prerequisites unmet or registration closed"
// @Router /enrollments [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	var req dto.EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	actor := middleware.GetActor(ctx)
	if err := c.authz.ValidateActsFor(actor, req.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if req.OverridePrerequisites {
		if err := c.authz.ValidateOverride(actor); err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
	}
	req.ActorID = actor.ID

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	enrollment, err := c.enrollmentService.Enroll(reqCtx, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(enrollment))
}

// Drop handles dropping an active enrollment
// @Summary Drop an enrollment
// @Description Marks the student's active enrollment in the offering as dropped
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.DropRequest true "Drop information"
// @Success 200 {object} dto.APIResponse{data=dto.EnrollmentResponse} "Enrollment dropped"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "No active enrollment"
// @Failure 422 {object} dto.ErrorResponse "Enrollment already completed"
// @Router /enrollments/drop [post]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	var req dto.DropRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	actor := middleware.GetActor(ctx)
	if err := c.authz.ValidateActsFor(actor, req.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	req.ActorID = actor.ID

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	enrollment, err := c.enrollmentService.Drop(reqCtx, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollment))
}

// BulkEnroll handles enrolling many students into one offering
// @Summary Bulk enroll students
// @Description Enrolls each listed student independently and reports a result per student
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Class offering ID" Format(int64) minimum(1)
// @Param request body dto.BulkEnrollRequest true "Students to enroll"
// @Success 200 {object} dto.APIResponse{data=dto.BulkEnrollResponse} "Per-student results"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Manager role required"
// @Router /class-offerings/{id}/bulk-enroll [post]
func (c *EnrollmentController) BulkEnroll(ctx *gin.Context) {
	offeringID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.BulkEnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	req.ActorID = middleware.GetActor(ctx).ID

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	result, err := c.enrollmentService.BulkEnroll(reqCtx, offeringID, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// CheckPrerequisites previews whether a student meets a course's prerequisites
// @Summary Check prerequisites
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param courseId path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=dto.PrerequisiteCheckResponse}
// @Failure 404 {object} dto.ErrorResponse "Student or course not found"
// @Router /students/{id}/prerequisites/{courseId} [get]
func (c *EnrollmentController) CheckPrerequisites(ctx *gin.Context) {
	studentID, ok := c.studentParam(ctx)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(ctx, "courseId")
	if !ok {
		return
	}

	result, err := c.enrollmentService.CheckPrerequisites(ctx.Request.Context(), studentID, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// CheckScheduleConflicts previews schedule conflicts with an offering
// @Summary Check schedule conflicts
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param offeringId path int true "Class offering ID"
// @Success 200 {object} dto.APIResponse{data=dto.ScheduleConflictCheckResponse}
// @Failure 404 {object} dto.ErrorResponse "Student or class offering not found"
// @Router /students/{id}/schedule-conflicts/{offeringId} [get]
func (c *EnrollmentController) CheckScheduleConflicts(ctx *gin.Context) {
	studentID, ok := c.studentParam(ctx)
	if !ok {
		return
	}
	offeringID, ok := parseIDParam(ctx, "offeringId")
	if !ok {
		return
	}

	result, err := c.enrollmentService.CheckScheduleConflicts(ctx.Request.Context(), studentID, offeringID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// GetAvailableOfferings lists a term's offerings annotated for a student
// @Summary List available offerings
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param termId query int true "Term ID"
// @Param courseId query int false "Course ID"
// @Param day query int false "Day of week, 0 is Sunday"
// @Param onlyOpen query bool false "Only open offerings (default true)"
// @Param onlyWithSeats query bool false "Only offerings with free seats"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.OfferingListResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Failure 404 {object} dto.ErrorResponse "Student or term not found"
// @Router /students/{id}/available-offerings [get]
func (c *EnrollmentController) GetAvailableOfferings(ctx *gin.Context) {
	studentID, ok := c.studentParam(ctx)
	if !ok {
		return
	}

	var filter dto.OfferingFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	result, err := c.enrollmentService.GetAvailableOfferings(ctx.Request.Context(), studentID, filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// studentParam parses the student path parameter and checks the actor may
// read that student's data.
func (c *EnrollmentController) studentParam(ctx *gin.Context) (int64, bool) {
	studentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return 0, false
	}
	if err := c.authz.ValidateActsFor(middleware.GetActor(ctx), studentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return 0, false
	}
	return studentID, true
}
