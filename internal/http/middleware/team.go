package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const teamContextKey = "teamContext"

// TeamHeader carries the caller's team identity, resolved upstream by the
// platform's session layer.
const TeamHeader = "X-Team-ID"

// Team requires a team identity on every request and attaches it to the gin
// context.
func Team() gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := strings.TrimSpace(c.Request.Header.Get(TeamHeader))
		if teamID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "missing_team",
				"error_description": "The " + TeamHeader + " header is required.",
			})
			return
		}
		c.Set(teamContextKey, teamID)
		c.Next()
	}
}

// GetTeamContext extracts the team identity from gin.
func GetTeamContext(c *gin.Context) (string, bool) {
	value, ok := c.Get(teamContextKey)
	if !ok {
		return "", false
	}
	teamID, ok := value.(string)
	return teamID, ok && teamID != ""
}
