package middleware

import (
	"net/http"
	"strings"

	"github.com/alumnity/alumnity/internal/config"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Claims is the JWT payload issued by the identity service
type Claims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and populates the request
// context with the authenticated actor. Requests without a valid token
// are rejected with 401 before any handler runs.
func AuthMiddleware(cfg *config.Configuration, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "Missing or malformed authorization header")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.Auth.Secret), nil
		})
		if err != nil || !token.Valid {
			logger.Debugw("rejected bearer token", "error", err)
			unauthorized(c, "Invalid or expired token")
			return
		}

		ctx := c.Request.Context()
		ctx = types.SetUserID(ctx, claims.UserID)
		ctx = types.SetTenantID(ctx, claims.TenantID)
		ctx = types.SetRoles(ctx, claims.Roles)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// BillingAdminMiddleware requires the billing_admin role on the
// authenticated actor. It runs after AuthMiddleware.
func BillingAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !types.HasRole(c.Request.Context(), types.RoleBillingAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error: ErrorDetail{
					Display: "Billing administration requires the billing_admin role",
				},
			})
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error: ErrorDetail{Display: message},
	})
}
