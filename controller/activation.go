package controller

import (
	"activation_server/dtos/request"
	"activation_server/services"

	"github.com/gofiber/fiber/v2"
)

type IActivationController interface {
	InitActivation(c *fiber.Ctx) error
	PrepareActivation(c *fiber.Ctx) error
	CreateActivation(c *fiber.Ctx) error
	CommitActivation(c *fiber.Ctx) error
	GetActivationStatus(c *fiber.Ctx) error
	BlockActivation(c *fiber.Ctx) error
	UnblockActivation(c *fiber.Ctx) error
	RemoveActivation(c *fiber.Ctx) error
	GetActivationListForUser(c *fiber.Ctx) error
}

type ActivationController struct {
	activationService services.IActivationService
}

func NewActivationController(activationService services.IActivationService) IActivationController {
	return &ActivationController{activationService: activationService}
}

func (ac *ActivationController) InitActivation(c *fiber.Ctx) error {
	req, err := parseBody[request.InitActivationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.InitActivation(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ActivationController) PrepareActivation(c *fiber.Ctx) error {
	req, err := parseBody[request.PrepareActivationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.PrepareActivation(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ActivationController) CreateActivation(c *fiber.Ctx) error {
	req, err := parseBody[request.CreateActivationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.CreateActivation(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ActivationController) CommitActivation(c *fiber.Ctx) error {
	req, err := parseBody[request.CommitActivationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.CommitActivation(req.ActivationId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ActivationController) GetActivationStatus(c *fiber.Ctx) error {
	req, err := parseBody[request.GetActivationStatusRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.GetActivationStatus(req.ActivationId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ActivationController) BlockActivation(c *fiber.Ctx) error {
	req, err := parseBody[request.BlockActivationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.BlockActivation(req.ActivationId, req.Reason)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ActivationController) UnblockActivation(c *fiber.Ctx) error {
	req, err := parseBody[request.UnblockActivationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.UnblockActivation(req.ActivationId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ActivationController) RemoveActivation(c *fiber.Ctx) error {
	req, err := parseBody[request.RemoveActivationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.RemoveActivation(req.ActivationId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ActivationController) GetActivationListForUser(c *fiber.Ctx) error {
	req, err := parseBody[request.GetActivationListForUserRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.activationService.GetActivationListForUser(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}
