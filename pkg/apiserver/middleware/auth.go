package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pcmindustrial/pcm/pkg/auth"
	"github.com/pcmindustrial/pcm/pkg/model"
)

// ActorKey is the context key under which Auth stores the authenticated user.
const ActorKey = "actor"

// Auth validates the bearer token and loads the acting user from storage, so
// role or affiliation changes take effect without waiting for token expiry.
func Auth(tokens *auth.TokenManager, loadUser func(c *gin.Context, id uuid.UUID) (*model.User, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := loadUser(c, userID)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		c.Set(ActorKey, *user)
		c.Next()
	}
}

// Actor returns the authenticated user stored by Auth.
func Actor(c *gin.Context) (model.User, bool) {
	value, ok := c.Get(ActorKey)
	if !ok {
		return model.User{}, false
	}
	actor, ok := value.(model.User)
	return actor, ok
}
