package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/service"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
)

// AuthRequired verifies the bearer token and puts the admin identity on the
// gin context under "user_id", "username", and "role".
func AuthRequired(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: "authorization header required",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		fields := strings.Fields(header)
		if len(fields) != 2 || !strings.EqualFold(fields[0], bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: "invalid authorization header",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		claims, err := authService.ValidateToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: "token is invalid or expired",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireRole checks the role set by AuthRequired
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
			Error: "insufficient role",
			Code:  "FORBIDDEN",
		})
	}
}
