package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/handler"
	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/pkg/auth"
)

const (
	contextClaims = "token_claims"
	contextAdmin  = "admin"
)

type AuthMiddleware struct {
	tokens auth.JWTService
	admins repository.AdminRepository
}

func NewAuthMiddleware(tokens auth.JWTService, admins repository.AdminRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, admins: admins}
}

// Authenticate verifies the bearer token and stores its claims in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(contextClaims, claims)
		c.Next()
	}
}

// RequirePatient rejects requests whose token is not a patient token.
func (m *AuthMiddleware) RequirePatient() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil || claims.Role != model.RolePatient {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("patient access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin loads the admin record behind an admin token and stores it in
// context. Deactivated accounts are rejected here even if their token is
// still valid.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil || (claims.Role != model.RoleAdmin && claims.Role != model.RoleSuper) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("admin access required"))
			c.Abort()
			return
		}

		admin, err := m.admins.Get(c.Request.Context(), claims.SubjectID)
		if err != nil || !admin.Active {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("admin account unavailable"))
			c.Abort()
			return
		}

		c.Set(contextAdmin, admin)
		c.Next()
	}
}

// RequireSuper restricts a route to the super admin.
func (m *AuthMiddleware) RequireSuper() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := AdminFrom(c)
		if admin == nil || admin.Role != model.AdminRoleSuper {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("super admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the token claims set by Authenticate, or nil.
func ClaimsFrom(c *gin.Context) *model.TokenClaims {
	v, ok := c.Get(contextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*model.TokenClaims)
	return claims
}

// AdminFrom returns the admin record set by RequireAdmin, or nil.
func AdminFrom(c *gin.Context) *model.Admin {
	v, ok := c.Get(contextAdmin)
	if !ok {
		return nil
	}
	admin, _ := v.(*model.Admin)
	return admin
}

// PatientIDFrom returns the authenticated patient's ID, or uuid.Nil.
func PatientIDFrom(c *gin.Context) uuid.UUID {
	claims := ClaimsFrom(c)
	if claims == nil || claims.Role != model.RolePatient {
		return uuid.Nil
	}
	return claims.SubjectID
}
