package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yigit/registrar/internal/app/controllers"
	"github.com/yigit/registrar/internal/middleware"
)

// Controllers groups the HTTP handlers mounted by SetupRouter
type Controllers struct {
	Enrollment   *controllers.EnrollmentController
	Prerequisite *controllers.PrerequisiteController
	Health       *controllers.HealthController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, ctrl Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/health", ctrl.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version group
	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.JWTAuth())

	enrollments := v1.Group("/enrollments")
	{
		enrollments.POST("", ctrl.Enrollment.Enroll)
		enrollments.POST("/drop", ctrl.Enrollment.Drop)
	}

	students := v1.Group("/students/:id")
	{
		students.GET("/prerequisites/:courseId", ctrl.Enrollment.CheckPrerequisites)
		students.GET("/schedule-conflicts/:offeringId", ctrl.Enrollment.CheckScheduleConflicts)
		students.GET("/available-offerings", ctrl.Enrollment.GetAvailableOfferings)
	}

	courses := v1.Group("/courses/:id")
	{
		courses.GET("/prerequisite-chain", ctrl.Prerequisite.GetPrerequisiteChain)

		// Catalog mutations need a manager role
		managed := courses.Group("")
		managed.Use(authMiddleware.ManagerRequired())
		{
			managed.POST("/prerequisites", ctrl.Prerequisite.AddPrerequisite)
			managed.DELETE("/prerequisites/:prerequisiteId", ctrl.Prerequisite.RemovePrerequisite)
			managed.DELETE("", ctrl.Prerequisite.DeleteCourse)
		}
	}

	offerings := v1.Group("/class-offerings/:id")
	offerings.Use(authMiddleware.ManagerRequired())
	{
		offerings.POST("/bulk-enroll", ctrl.Enrollment.BulkEnroll)
	}
}
