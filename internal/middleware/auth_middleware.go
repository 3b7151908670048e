package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appAuth "github.com/yigit/registrar/internal/app/auth"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ActorIDKey   = "actorId"
	RoleTypeKey  = "roleType"
	StudentIDKey = "studentId"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	authz      *appAuth.AuthorizationService
	enabled    bool
}

// NewAuthMiddleware creates a new AuthMiddleware. A disabled middleware treats
// every request as coming from the system administrator.
func NewAuthMiddleware(jwtService *auth.JWTService, authz *appAuth.AuthorizationService, enabled bool) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		authz:      authz,
		enabled:    enabled,
	}
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			setActor(c, appAuth.SystemActor)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
				WithDetails("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		setActor(c, appAuth.Actor{
			ID:        claims.ActorID,
			Role:      models.RoleType(claims.RoleType),
			StudentID: claims.StudentID,
		})
		c.Next()
	}
}

// ManagerRequired rejects actors without a manager role
func (m *AuthMiddleware) ManagerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.authz.ValidateManager(GetActor(c)); err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func setActor(c *gin.Context, actor appAuth.Actor) {
	c.Set(ActorIDKey, actor.ID)
	c.Set(RoleTypeKey, string(actor.Role))
	c.Set(StudentIDKey, actor.StudentID)
}

// GetActor returns the authenticated actor of the request
func GetActor(c *gin.Context) appAuth.Actor {
	return appAuth.Actor{
		ID:        c.GetInt64(ActorIDKey),
		Role:      models.RoleType(c.GetString(RoleTypeKey)),
		StudentID: c.GetInt64(StudentIDKey),
	}
}
