package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 response. The panic is logged
// with the agent session it happened in so it can be matched against the
// session's fault journal.
func Recovery(log *zap.Logger, sessionID string) gin.HandlerFunc {
	log = log.With(zap.String("session_id", sessionID))

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			fields := []zap.Field{
				zap.String("panic", fmt.Sprint(rec)),
				zap.String("route", c.FullPath()),
				zap.String("method", c.Request.Method),
			}
			if task := c.Query("id"); task != "" {
				fields = append(fields, zap.String("task_id", task))
			}
			log.Error("Handler panicked", fields...)

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "internal agent error",
				"session_id": sessionID,
			})
		}()
		c.Next()
	}
}
