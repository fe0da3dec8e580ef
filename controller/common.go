package controller

import (
	"activation_server/dtos/response"
	"activation_server/serviceerror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// parseBody parses and validates a JSON request body.
func parseBody[T any](c *fiber.Ctx) (*T, error) {
	var body T
	if err := c.BodyParser(&body); err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}
	if err := validate.Struct(&body); err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}
	return &body, nil
}

// renderOk wraps a response object in the OK envelope.
func renderOk(c *fiber.Ctx, object interface{}) error {
	return c.Status(fiber.StatusOK).JSON(response.Ok(object))
}

// renderError maps service errors onto the ERROR envelope with HTTP 400.
// Anything that is not a ServiceError is reported as the generic
// cryptography error so internals never leak.
func renderError(c *fiber.Ctx, err error) error {
	if recoveryErr, ok := serviceerror.AsRecoveryError(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(response.ErrorModel{
			Code:                    recoveryErr.Code,
			Message:                 recoveryErr.Message,
			LocalizedMessage:        recoveryErr.Message,
			CurrentRecoveryPukIndex: recoveryErr.CurrentRecoveryPukIndex,
		}))
	}
	if svcErr, ok := serviceerror.AsServiceError(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(response.ErrorModel{
			Code:             svcErr.Code,
			Message:          svcErr.Message,
			LocalizedMessage: svcErr.Message,
		}))
	}
	generic := serviceerror.New(serviceerror.CodeGenericCryptographyError)
	return c.Status(fiber.StatusBadRequest).JSON(response.Error(response.ErrorModel{
		Code:             generic.Code,
		Message:          generic.Message,
		LocalizedMessage: generic.Message,
	}))
}
