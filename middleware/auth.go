package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shopswift/storefront/common/auth"
	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/models"
)

const (
	UserContextKey   = "userID"
	RoleContextKey   = "role"
	TenantContextKey = "tenant"

	TenantHeader = "X-Tenant-ID"
	RoleAdmin    = "admin"
)

var ErrNoUser = errors.New("user ID not found in context")

// AuthMiddleware resolves the caller from a Bearer access token. When
// trustGateway is set, identity headers injected by the API gateway are
// accepted as well.
func AuthMiddleware(verifier *auth.TokenVerifier, trustGateway bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID, role, tenant string

		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			claims, err := verifier.ParseAndValidateToken(strings.TrimPrefix(header, "Bearer "), "access")
			if err != nil {
				apperrors.Response(c, apperrors.Unauthorized("Invalid or expired token"))
				return
			}
			userID, role, tenant = claims.UserID, claims.Role, claims.Tenant
		} else if trustGateway {
			userID = c.GetHeader("X-User-ID")
			role = c.GetHeader("X-User-Role")
		}

		if userID == "" {
			apperrors.Response(c, apperrors.Unauthorized("Authentication required"))
			return
		}

		if tenant == "" {
			tenant = c.GetHeader(TenantHeader)
		}
		if tenant == "" {
			tenant = models.DefaultTenant
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Set(TenantContextKey, tenant)
		c.Next()
	}
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) (string, error) {
	if id := c.GetString(UserContextKey); id != "" {
		return id, nil
	}
	return "", ErrNoUser
}

// CartKeyFrom builds the cart cache key for the authenticated caller.
func CartKeyFrom(c *gin.Context) (models.CartKey, error) {
	userID, err := GetUserID(c)
	if err != nil {
		return models.CartKey{}, err
	}
	tenant := c.GetString(TenantContextKey)
	if tenant == "" {
		tenant = models.DefaultTenant
	}
	return models.CartKey{TenantID: tenant, UserID: userID}, nil
}

// AdminOnly restricts access to admin role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleContextKey) != RoleAdmin {
			apperrors.Response(c, apperrors.Forbidden("Admin role required"))
			return
		}
		c.Next()
	}
}
