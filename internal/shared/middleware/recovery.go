package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"promotracker-backend/internal/shared/response"
)

// Recovery turns a panic anywhere below into a 500 envelope instead of a
// dropped connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("request_id", c.GetString("request_id")).
					Interface("panic", err).
					Msg("panic recovered")

				response.ErrorResponse(c, http.StatusInternalServerError,
					response.CodeInternalError, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
