package controller

import (
	"activation_server/dtos/request"
	"activation_server/services"

	"github.com/gofiber/fiber/v2"
)

type IApplicationController interface {
	CreateApplication(c *fiber.Ctx) error
	GetApplicationList(c *fiber.Ctx) error
	GetApplicationDetail(c *fiber.Ctx) error
	CreateApplicationVersion(c *fiber.Ctx) error
	SupportApplicationVersion(c *fiber.Ctx) error
	UnsupportApplicationVersion(c *fiber.Ctx) error
	CreateIntegration(c *fiber.Ctx) error
	GetIntegrationList(c *fiber.Ctx) error
	RemoveIntegration(c *fiber.Ctx) error
	CreateCallbackUrl(c *fiber.Ctx) error
	GetCallbackUrlList(c *fiber.Ctx) error
	RemoveCallbackUrl(c *fiber.Ctx) error
	GetSignatureAuditLog(c *fiber.Ctx) error
}

type ApplicationController struct {
	applicationService services.IApplicationService
	integrationService services.IIntegrationService
	auditService       services.IAuditService
}

func NewApplicationController(applicationService services.IApplicationService, integrationService services.IIntegrationService, auditService services.IAuditService) IApplicationController {
	return &ApplicationController{
		applicationService: applicationService,
		integrationService: integrationService,
		auditService:       auditService,
	}
}

func (ac *ApplicationController) CreateApplication(c *fiber.Ctx) error {
	req, err := parseBody[request.CreateApplicationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.applicationService.CreateApplication(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) GetApplicationList(c *fiber.Ctx) error {
	resp, err := ac.applicationService.GetApplicationList()
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) GetApplicationDetail(c *fiber.Ctx) error {
	req, err := parseBody[request.GetApplicationDetailRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.applicationService.GetApplicationDetail(req.ApplicationId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) CreateApplicationVersion(c *fiber.Ctx) error {
	req, err := parseBody[request.CreateApplicationVersionRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.applicationService.CreateApplicationVersion(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) SupportApplicationVersion(c *fiber.Ctx) error {
	req, err := parseBody[request.SupportApplicationVersionRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.applicationService.SupportApplicationVersion(req.ApplicationVersionId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) UnsupportApplicationVersion(c *fiber.Ctx) error {
	req, err := parseBody[request.UnsupportApplicationVersionRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.applicationService.UnsupportApplicationVersion(req.ApplicationVersionId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) CreateIntegration(c *fiber.Ctx) error {
	req, err := parseBody[request.CreateIntegrationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.integrationService.CreateIntegration(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) GetIntegrationList(c *fiber.Ctx) error {
	resp, err := ac.integrationService.GetIntegrationList()
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) RemoveIntegration(c *fiber.Ctx) error {
	req, err := parseBody[request.RemoveIntegrationRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.integrationService.RemoveIntegration(req.Id)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) CreateCallbackUrl(c *fiber.Ctx) error {
	req, err := parseBody[request.CreateCallbackUrlRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.integrationService.CreateCallbackUrl(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) GetCallbackUrlList(c *fiber.Ctx) error {
	req, err := parseBody[request.GetCallbackUrlListRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.integrationService.GetCallbackUrlList(req.ApplicationId)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) RemoveCallbackUrl(c *fiber.Ctx) error {
	req, err := parseBody[request.RemoveCallbackUrlRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.integrationService.RemoveCallbackUrl(req.Id)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (ac *ApplicationController) GetSignatureAuditLog(c *fiber.Ctx) error {
	req, err := parseBody[request.GetSignatureAuditRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := ac.auditService.GetSignatureAuditLog(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}
