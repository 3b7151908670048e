package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/app/services"
	"github.com/yigit/registrar/internal/middleware"
)

// PrerequisiteController handles the prerequisite graph and course lifecycle
type PrerequisiteController struct {
	prerequisiteService *services.PrerequisiteService
}

// NewPrerequisiteController creates a new PrerequisiteController
func NewPrerequisiteController(prerequisiteService *services.PrerequisiteService) *PrerequisiteController {
	return &PrerequisiteController{prerequisiteService: prerequisiteService}
}

// AddPrerequisite adds a prerequisite edge
// @Summary Add a prerequisite
// @Description Makes one course a prerequisite of another. Edges that would close a cycle are rejected.
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body dto.AddPrerequisiteRequest true "Prerequisite"
// @Success 201 {object} dto.APIResponse{data=dto.PrerequisiteEdgeResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request or self prerequisite"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 409 {object} dto.ErrorResponse "Duplicate edge or cycle"
// @Router /courses/{id}/prerequisites [post]
func (c *PrerequisiteController) AddPrerequisite(ctx *gin.Context) {
	courseID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.AddPrerequisiteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	req.ActorID = middleware.GetActor(ctx).ID

	edge, err := c.prerequisiteService.AddPrerequisite(ctx.Request.Context(), courseID, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(edge))
}

// RemovePrerequisite removes a prerequisite edge
// @Summary Remove a prerequisite
// @Tags courses
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param prerequisiteId path int true "Prerequisite course ID"
// @Success 204 "Prerequisite removed"
// @Failure 404 {object} dto.ErrorResponse "Edge not found"
// @Router /courses/{id}/prerequisites/{prerequisiteId} [delete]
func (c *PrerequisiteController) RemovePrerequisite(ctx *gin.Context) {
	courseID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	prerequisiteID, ok := parseIDParam(ctx, "prerequisiteId")
	if !ok {
		return
	}

	if err := c.prerequisiteService.RemovePrerequisite(ctx.Request.Context(), courseID, prerequisiteID, middleware.GetActor(ctx).ID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GetPrerequisiteChain returns every transitive prerequisite of a course
// @Summary Get the prerequisite chain
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=dto.PrerequisiteChainResponse}
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/prerequisite-chain [get]
func (c *PrerequisiteController) GetPrerequisiteChain(ctx *gin.Context) {
	courseID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	chain, err := c.prerequisiteService.GetPrerequisiteChain(ctx.Request.Context(), courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(chain))
}

// DeleteCourse soft-deletes a course that no curriculum or offering uses
// @Summary Delete a course
// @Tags courses
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 204 "Course deleted"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 409 {object} dto.ErrorResponse "Course still in use"
// @Router /courses/{id} [delete]
func (c *PrerequisiteController) DeleteCourse(ctx *gin.Context) {
	courseID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.prerequisiteService.DeleteCourse(ctx.Request.Context(), courseID, middleware.GetActor(ctx).ID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
