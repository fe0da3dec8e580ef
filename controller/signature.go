package controller

import (
	"activation_server/dtos/request"
	"activation_server/services"

	"github.com/gofiber/fiber/v2"
)

type ISignatureController interface {
	VerifySignature(c *fiber.Ctx) error
	VerifyOfflineSignature(c *fiber.Ctx) error
	CreatePersonalizedOfflineSignaturePayload(c *fiber.Ctx) error
	CreateNonPersonalizedOfflineSignaturePayload(c *fiber.Ctx) error
	VaultUnlock(c *fiber.Ctx) error
	CreateToken(c *fiber.Ctx) error
	ValidateToken(c *fiber.Ctx) error
	RemoveToken(c *fiber.Ctx) error
}

type SignatureController struct {
	signatureService services.ISignatureService
	vaultService     services.IVaultService
	tokenService     services.ITokenService
}

func NewSignatureController(signatureService services.ISignatureService, vaultService services.IVaultService, tokenService services.ITokenService) ISignatureController {
	return &SignatureController{
		signatureService: signatureService,
		vaultService:     vaultService,
		tokenService:     tokenService,
	}
}

func (sc *SignatureController) VerifySignature(c *fiber.Ctx) error {
	req, err := parseBody[request.VerifySignatureRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := sc.signatureService.VerifySignature(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (sc *SignatureController) VerifyOfflineSignature(c *fiber.Ctx) error {
	req, err := parseBody[request.VerifyOfflineSignatureRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := sc.signatureService.VerifyOfflineSignature(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (sc *SignatureController) CreatePersonalizedOfflineSignaturePayload(c *fiber.Ctx) error {
	req, err := parseBody[request.CreatePersonalizedOfflineSignaturePayloadRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := sc.signatureService.CreatePersonalizedOfflineSignaturePayload(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (sc *SignatureController) CreateNonPersonalizedOfflineSignaturePayload(c *fiber.Ctx) error {
	req, err := parseBody[request.CreateNonPersonalizedOfflineSignaturePayloadRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := sc.signatureService.CreateNonPersonalizedOfflineSignaturePayload(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (sc *SignatureController) VaultUnlock(c *fiber.Ctx) error {
	req, err := parseBody[request.VaultUnlockRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := sc.vaultService.VaultUnlock(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (sc *SignatureController) CreateToken(c *fiber.Ctx) error {
	req, err := parseBody[request.CreateTokenRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := sc.tokenService.CreateToken(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (sc *SignatureController) ValidateToken(c *fiber.Ctx) error {
	req, err := parseBody[request.ValidateTokenRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := sc.tokenService.ValidateToken(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}

func (sc *SignatureController) RemoveToken(c *fiber.Ctx) error {
	req, err := parseBody[request.RemoveTokenRequest](c)
	if err != nil {
		return renderError(c, err)
	}
	resp, err := sc.tokenService.RemoveToken(req)
	if err != nil {
		return renderError(c, err)
	}
	return renderOk(c, resp)
}
