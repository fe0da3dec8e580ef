package serviceerror

import "errors"

// ServiceError is the tagged error returned by all service operations.
// Controllers render it as the ERROR envelope with HTTP status 400.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}

// New builds a ServiceError for a stable code with its canonical message.
func New(code string) *ServiceError {
	return &ServiceError{Code: code, Message: MessageFor(code)}
}

// ActivationRecoveryError is a ServiceError that additionally carries the
// index of the next valid PUK, so the client can tell the user which PUK to
// look up after a failed attempt.
type ActivationRecoveryError struct {
	ServiceError
	CurrentRecoveryPukIndex int64
}

// NewRecovery builds an ActivationRecoveryError with the given PUK index.
func NewRecovery(code string, pukIndex int64) *ActivationRecoveryError {
	return &ActivationRecoveryError{
		ServiceError:            ServiceError{Code: code, Message: MessageFor(code)},
		CurrentRecoveryPukIndex: pukIndex,
	}
}

// AsServiceError unwraps err into a *ServiceError if it is one.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	var re *ActivationRecoveryError
	if errors.As(err, &re) {
		return &re.ServiceError, true
	}
	return nil, false
}

// AsRecoveryError unwraps err into an *ActivationRecoveryError if it is one.
func AsRecoveryError(err error) (*ActivationRecoveryError, bool) {
	var re *ActivationRecoveryError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
