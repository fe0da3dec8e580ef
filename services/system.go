package services

import (
	"activation_server/config"
	"activation_server/dtos/response"
	"activation_server/serviceerror"
)

// serverVersion is reported by getSystemStatus.
const serverVersion = "1.0.0"

type ISystemService interface {
	GetSystemStatus() *response.GetSystemStatusResponse
	GetErrorCodeList() *response.GetErrorCodeListResponse
}

type SystemService struct {
	clock Clock
}

func NewSystemService(clock Clock) ISystemService {
	return &SystemService{clock: clock}
}

func (s *SystemService) GetSystemStatus() *response.GetSystemStatusResponse {
	app := config.Conf.Application
	return &response.GetSystemStatusResponse{
		Status:                 "OK",
		ApplicationName:        app.Name,
		ApplicationDisplayName: app.DisplayName,
		ApplicationEnvironment: app.Environment,
		Version:                serverVersion,
		Timestamp:              s.clock.Now(),
	}
}

func (s *SystemService) GetErrorCodeList() *response.GetErrorCodeListResponse {
	codes := serviceerror.Codes()
	resp := &response.GetErrorCodeListResponse{Errors: make([]response.ErrorCodeItem, 0, len(codes))}
	for _, entry := range codes {
		resp.Errors = append(resp.Errors, response.ErrorCodeItem{Code: entry.Code, Message: entry.Message})
	}
	return resp
}
