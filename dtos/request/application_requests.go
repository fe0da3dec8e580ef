package request

type CreateApplicationRequest struct {
	ApplicationName string `json:"applicationName" validate:"required"`
}

type GetApplicationDetailRequest struct {
	ApplicationId uint `json:"applicationId" validate:"required"`
}

type CreateApplicationVersionRequest struct {
	ApplicationId          uint   `json:"applicationId" validate:"required"`
	ApplicationVersionName string `json:"applicationVersionName" validate:"required"`
}

type SupportApplicationVersionRequest struct {
	ApplicationVersionId uint `json:"applicationVersionId" validate:"required"`
}

type UnsupportApplicationVersionRequest struct {
	ApplicationVersionId uint `json:"applicationVersionId" validate:"required"`
}

type CreateIntegrationRequest struct {
	Name string `json:"name" validate:"required"`
}

type RemoveIntegrationRequest struct {
	Id string `json:"id" validate:"required"`
}

type CreateCallbackUrlRequest struct {
	ApplicationId uint   `json:"applicationId" validate:"required"`
	Name          string `json:"name" validate:"required"`
	CallbackUrl   string `json:"callbackUrl" validate:"required,url"`
}

type GetCallbackUrlListRequest struct {
	ApplicationId uint `json:"applicationId" validate:"required"`
}

type RemoveCallbackUrlRequest struct {
	Id string `json:"id" validate:"required"`
}

type GetSignatureAuditRequest struct {
	UserId        string `json:"userId" validate:"required"`
	ApplicationId uint   `json:"applicationId"`
	TimestampFrom int64  `json:"timestampFrom"`
	TimestampTo   int64  `json:"timestampTo"`
}
