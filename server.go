package main

import (
	"time"

	"activation_server/config"
	"activation_server/controller"
	"activation_server/middleware"
	"activation_server/services"

	"github.com/gofiber/fiber/v2"
)

type Server struct {
	ActivationController  controller.IActivationController
	SignatureController   controller.ISignatureController
	ApplicationController controller.IApplicationController
	RecoveryController    controller.IRecoveryController
	SystemController      controller.ISystemController
	IntegrationService    services.IIntegrationService
}

func NewServer(
	activationController controller.IActivationController,
	signatureController controller.ISignatureController,
	applicationController controller.IApplicationController,
	recoveryController controller.IRecoveryController,
	systemController controller.ISystemController,
	integrationService services.IIntegrationService,
) *Server {
	return &Server{
		ActivationController:  activationController,
		SignatureController:   signatureController,
		ApplicationController: applicationController,
		RecoveryController:    recoveryController,
		SystemController:      systemController,
		IntegrationService:    integrationService,
	}
}

// Start builds the Fiber application and registers the route table. All
// operations are POST with a JSON body, wrapped in the shared envelope.
func (s *Server) Start() *fiber.App {
	app := fiber.New()

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggingMiddleware(config.Logger))
	if config.Conf.Application.RestrictAccess {
		app.Use(middleware.IntegrationAuth(s.IntegrationService))
	}

	contextPath := app.Group(config.Conf.Application.Server.ContextPath)
	apiVersion := contextPath.Group(config.Conf.Application.Server.ApiVersion)

	activationGroup := apiVersion.Group("/activation")
	activationGroup.Post("/init", s.ActivationController.InitActivation)
	activationGroup.Post("/prepare", s.ActivationController.PrepareActivation)
	activationGroup.Post("/create", s.ActivationController.CreateActivation)
	activationGroup.Post("/commit", s.ActivationController.CommitActivation)
	activationGroup.Post("/status", s.ActivationController.GetActivationStatus)
	activationGroup.Post("/block", s.ActivationController.BlockActivation)
	activationGroup.Post("/unblock", s.ActivationController.UnblockActivation)
	activationGroup.Post("/remove", s.ActivationController.RemoveActivation)
	activationGroup.Post("/list", s.ActivationController.GetActivationListForUser)

	signatureGroup := apiVersion.Group("/signature",
		middleware.RouteRateLimiter(100, 30*time.Second))
	signatureGroup.Post("/verify", s.SignatureController.VerifySignature)
	signatureGroup.Post("/offline/verify", s.SignatureController.VerifyOfflineSignature)
	signatureGroup.Post("/offline/personalized/create", s.SignatureController.CreatePersonalizedOfflineSignaturePayload)
	signatureGroup.Post("/offline/non-personalized/create", s.SignatureController.CreateNonPersonalizedOfflineSignaturePayload)

	apiVersion.Post("/vault/unlock", s.SignatureController.VaultUnlock)

	tokenGroup := apiVersion.Group("/token")
	tokenGroup.Post("/create", s.SignatureController.CreateToken)
	tokenGroup.Post("/validate", s.SignatureController.ValidateToken)
	tokenGroup.Post("/remove", s.SignatureController.RemoveToken)

	applicationGroup := apiVersion.Group("/application")
	applicationGroup.Post("/create", s.ApplicationController.CreateApplication)
	applicationGroup.Post("/list", s.ApplicationController.GetApplicationList)
	applicationGroup.Post("/detail", s.ApplicationController.GetApplicationDetail)
	applicationGroup.Post("/version/create", s.ApplicationController.CreateApplicationVersion)
	applicationGroup.Post("/version/support", s.ApplicationController.SupportApplicationVersion)
	applicationGroup.Post("/version/unsupport", s.ApplicationController.UnsupportApplicationVersion)

	integrationGroup := apiVersion.Group("/integration")
	integrationGroup.Post("/create", s.ApplicationController.CreateIntegration)
	integrationGroup.Post("/list", s.ApplicationController.GetIntegrationList)
	integrationGroup.Post("/remove", s.ApplicationController.RemoveIntegration)

	callbackGroup := apiVersion.Group("/application/callback")
	callbackGroup.Post("/create", s.ApplicationController.CreateCallbackUrl)
	callbackGroup.Post("/list", s.ApplicationController.GetCallbackUrlList)
	callbackGroup.Post("/remove", s.ApplicationController.RemoveCallbackUrl)

	apiVersion.Post("/signature/list", s.ApplicationController.GetSignatureAuditLog)

	recoveryGroup := apiVersion.Group("/recovery")
	recoveryGroup.Post("/create", s.RecoveryController.CreateRecoveryCode)
	recoveryGroup.Post("/confirm", s.RecoveryController.ConfirmRecoveryCode)
	recoveryGroup.Post("/lookup", s.RecoveryController.LookupRecoveryCodes)
	recoveryGroup.Post("/revoke", s.RecoveryController.RevokeRecoveryCodes)
	recoveryGroup.Post("/activation", s.RecoveryController.RecoveryCodeActivation)
	recoveryGroup.Post("/config/detail", s.RecoveryController.GetRecoveryConfig)
	recoveryGroup.Post("/config/update", s.RecoveryController.UpdateRecoveryConfig)

	apiVersion.Post("/status", s.SystemController.GetSystemStatus)
	apiVersion.Post("/error/list", s.SystemController.GetErrorCodeList)

	return app
}
