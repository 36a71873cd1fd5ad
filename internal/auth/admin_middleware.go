package auth

import (
	"net/http"

	"playmatch/tags/internal/database"
	"playmatch/tags/internal/models"

	"github.com/gin-gonic/gin"
)

// RequireRole aborts unless the authenticated user has the given role.
// It must be used AFTER AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var user models.User
		if err := database.DB.Select("id", "role").First(&user, userID.(uint)).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Authenticated user not found"})
			return
		}

		if user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": role + " access required"})
			return
		}

		c.Next()
	}
}

// AdminMiddleware restricts a route group to administrators.
func AdminMiddleware() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
