package middleware

import (
	"time"

	"activation_server/dtos/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RouteRateLimiter bounds the request rate of a route group.
func RouteRateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(response.Error(response.ErrorModel{
				Code:             "ERR_TOO_MANY_REQUESTS",
				Message:          "Rate limit exceeded",
				LocalizedMessage: "Rate limit exceeded",
			}))
		},
	})
}
