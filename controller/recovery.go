package controller

import (
	"activation_server/dtos/request"
	"activation_server/services"

	"github.com/gofiber/fiber/v2"
)

type IRecoveryController interface {
	CreateRecoveryCode(c *fiber.Ctx) error
	ConfirmRecoveryCode(c *fiber.Ctx) error
	LookupRecoveryCodes(c *fiber.Ctx) error
	RevokeRecoveryCodes(c *fiber.Ctx) error
	RecoveryCodeActivation(c *fiber.Ctx) error
	GetRecoveryConfig(c *fiber.Ctx) error
	UpdateRecoveryConfig(c *fiber.Ctx) error
}

type RecoveryController struct {
	recoveryService services.IRecoveryService
}

func NewRecoveryController(recoveryService services.IRecoveryService) IRecoveryController {
	return &RecoveryController{recoveryService: recoveryService}
}

func (rc *RecoveryController) CreateRecoveryCode(c *fiber.Ctx) error {
	req, err := parseBody[request.CreateRecoveryCodeRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := rc.recoveryService.CreateRecoveryCode(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (rc *RecoveryController) ConfirmRecoveryCode(c *fiber.Ctx) error {
	req, err := parseBody[request.ConfirmRecoveryCodeRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := rc.recoveryService.ConfirmRecoveryCode(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (rc *RecoveryController) LookupRecoveryCodes(c *fiber.Ctx) error {
	req, err := parseBody[request.LookupRecoveryCodesRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := rc.recoveryService.LookupRecoveryCodes(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (rc *RecoveryController) RevokeRecoveryCodes(c *fiber.Ctx) error {
	req, err := parseBody[request.RevokeRecoveryCodesRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := rc.recoveryService.RevokeRecoveryCodes(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (rc *RecoveryController) RecoveryCodeActivation(c *fiber.Ctx) error {
	req, err := parseBody[request.RecoveryCodeActivationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := rc.recoveryService.RecoveryCodeActivation(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (rc *RecoveryController) GetRecoveryConfig(c *fiber.Ctx) error {
	req, err := parseBody[request.GetRecoveryConfigRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := rc.recoveryService.GetRecoveryConfig(req.ApplicationId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (rc *RecoveryController) UpdateRecoveryConfig(c *fiber.Ctx) error {
	req, err := parseBody[request.UpdateRecoveryConfigRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := rc.recoveryService.UpdateRecoveryConfig(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}
