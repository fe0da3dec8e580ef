package controller

import (
	"activation_server/services"

	"github.com/gofiber/fiber/v2"
)

type ISystemController interface {
	GetSystemStatus(c *fiber.Ctx) error
	GetErrorCodeList(c *fiber.Ctx) error
}

type SystemController struct {
	systemService services.ISystemService
}

func NewSystemController(systemService services.ISystemService) ISystemController {
	return &SystemController{systemService: systemService}
}

func (sc *SystemController) GetSystemStatus(c *fiber.Ctx) error {
	return renderOk(c, sc.systemService.GetSystemStatus())
}

func (sc *SystemController) GetErrorCodeList(c *fiber.Ctx) error {
	return renderOk(c, sc.systemService.GetErrorCodeList())
}
