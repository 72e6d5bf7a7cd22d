package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request after it completes.
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(req *gin.Context) {
		start := time.Now()

		req.Next()

		log.Info("api: request",
			"method", req.Request.Method,
			"path", req.Request.URL.Path,
			"duration", time.Since(start),
			"status", req.Writer.Status(),
		)
	}
}
