package middleware

import (
	"runtime/debug"

	"activation_server/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns panics into plain 500 responses. The stack goes
// to the log, never to the client.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				config.Logger.Error("Caught panic",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
				c.Status(fiber.StatusInternalServerError)
			}
		}()
		return c.Next()
	}
}
