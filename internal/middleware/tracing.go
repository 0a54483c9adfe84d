package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"
const requestIDLocal = "request_id"

// Tracing tags every request with an ID and echoes it on the response. An
// inbound X-Request-Id (the Vercel edge sets one) is kept as-is so our log
// lines correlate with the platform's.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals(requestIDLocal, requestID)
		c.Set(requestIDHeader, requestID)
		return c.Next()
	}
}

// GetRequestID returns the request ID assigned by Tracing, or "" outside it.
func GetRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDLocal).(string); ok {
		return id
	}
	return ""
}
