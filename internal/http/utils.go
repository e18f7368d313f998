package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/appforge/runtime/internal/types"
)

// callerIdentity reads the caller's identity from request headers. A
// missing role defaults to viewer, the least privileged tier.
func callerIdentity(c *gin.Context) (string, types.Role) {
	userID := c.GetHeader("X-User-Id")
	role := types.Role(c.GetHeader("X-User-Role"))
	if role.Rank() == 0 {
		role = types.RoleViewer
	}
	return userID, role
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
