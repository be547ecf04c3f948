package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/repository"
)

// Audit records an audit entry after successful requests on mutating
// routes. Domain-level transitions are audited by the services; this layer
// captures the HTTP surface for request tracing.
func Audit(repo *repository.AuditRepository, action, entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		actorID := ""
		if claims, ok := c.Get(ContextUserKey); ok {
			actorID = claims.(*models.JWTClaims).UserID
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
			"ip":      c.ClientIP(),
		})

		_ = repo.Append(c.Request.Context(), &models.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   entity,
			EntityID: c.Param("id"),
			Metadata: body,
		})
	}
}
