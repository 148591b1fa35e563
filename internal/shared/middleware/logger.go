package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes one access-log line per request. Server-side failures log
// at error level so balance cascades gone wrong stand out in the stream;
// rejected input stays at warn.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}

		event.
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency_ms", time.Since(start)).
			Str("ip", c.ClientIP())

		// The engine keys everything off this header; having it in the
		// access log ties a cascade to the user who triggered it.
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			event.Str("user_id", userID)
		}

		event.Msg("http request")
	}
}
