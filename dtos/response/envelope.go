package response

// Every REST response is wrapped in the same envelope: status OK with a
// response object, or status ERROR with a list of error models.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

type Envelope struct {
	Status         string       `json:"status"`
	ResponseObject interface{}  `json:"responseObject,omitempty"`
	ResponseError  []ErrorModel `json:"responseError,omitempty"`
}

type ErrorModel struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	LocalizedMessage string `json:"localizedMessage"`

	// Only set on recovery errors; tells the client which PUK to ask for.
	CurrentRecoveryPukIndex int64 `json:"currentRecoveryPukIndex,omitempty"`
}

func Ok(object interface{}) Envelope {
	return Envelope{Status: StatusOK, ResponseObject: object}
}

func Error(models ...ErrorModel) Envelope {
	return Envelope{Status: StatusError, ResponseError: models}
}
