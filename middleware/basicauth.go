package middleware

import (
	"encoding/base64"
	"strings"

	"activation_server/dtos/response"

	"github.com/gofiber/fiber/v2"
)

// CredentialChecker validates one client token and secret pair.
type CredentialChecker interface {
	CheckCredentials(clientToken, clientSecret string) bool
}

// IntegrationAuth enforces HTTP Basic authentication against the
// integration credential table. Installed only when restricted access is
// configured.
func IntegrationAuth(checker CredentialChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Basic ") {
			return unauthorized(c)
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
		if err != nil {
			return unauthorized(c)
		}
		token, secret, found := strings.Cut(string(decoded), ":")
		if !found || !checker.CheckCredentials(token, secret) {
			return unauthorized(c)
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="activation-server"`)
	return c.Status(fiber.StatusUnauthorized).JSON(response.Error(response.ErrorModel{
		Code:             "ERR_UNAUTHORIZED",
		Message:          "Missing or invalid integration credentials",
		LocalizedMessage: "Missing or invalid integration credentials",
	}))
}
