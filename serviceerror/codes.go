package serviceerror

// Stable error codes surfaced in REST error responses. The codes are part of
// the public contract and must not be renamed.
const (
	// Input validation
	CodeNoUserID         = "ERR_NO_USER_ID"
	CodeNoApplicationID  = "ERR_NO_APPLICATION_ID"
	CodeInvalidRequest   = "ERR_INVALID_REQUEST"
	CodeInvalidKeyFormat = "ERR_INVALID_KEY_FORMAT"

	// State / lifecycle
	CodeActivationNotFound       = "ERR_ACTIVATION_NOT_FOUND"
	CodeActivationExpired        = "ERR_ACTIVATION_EXPIRED"
	CodeActivationIncorrectState = "ERR_ACTIVATION_INCORRECT_STATE"

	// Cryptographic
	CodeUnableToComputeSignature            = "ERR_UNABLE_TO_COMPUTE_SIGNATURE"
	CodeIncorrectMasterServerKeypairPrivate = "ERR_INCORRECT_MASTER_SERVER_KEYPAIR_PRIVATE"
	CodeNoMasterServerKeypair               = "ERR_NO_MASTER_SERVER_KEYPAIR"
	CodeGenericCryptographyError            = "ERR_GENERIC_CRYPTOGRAPHY_ERROR"

	// Resource / capacity
	CodeUnableToGenerateActivationID      = "ERR_UNABLE_TO_GENERATE_ACTIVATION_ID"
	CodeUnableToGenerateShortActivationID = "ERR_UNABLE_TO_GENERATE_SHORT_ACTIVATION_ID"
	CodeUnableToGenerateRecoveryCode      = "ERR_UNABLE_TO_GENERATE_RECOVERY_CODE"
	CodeUnableToGenerateToken             = "ERR_UNABLE_TO_GENERATE_TOKEN"

	// Recovery
	CodeInvalidRecoveryCode       = "ERR_INVALID_RECOVERY_CODE"
	CodeRecoveryCodeAlreadyExists = "ERR_RECOVERY_CODE_ALREADY_EXISTS"

	// Tokens
	CodeTokenNotFound = "ERR_TOKEN_NOT_FOUND"

	// Transient; the caller should retry
	CodeConcurrency = "ERR_CONCURRENCY"
)

var messages = map[string]string{
	CodeNoUserID:                            "User ID was not specified",
	CodeNoApplicationID:                     "Application ID was not specified",
	CodeInvalidRequest:                      "Invalid request object sent to the service",
	CodeInvalidKeyFormat:                    "Provided key has an invalid format",
	CodeActivationNotFound:                  "Activation with given activation ID was not found",
	CodeActivationExpired:                   "Activation is already expired",
	CodeActivationIncorrectState:            "Activation is in incorrect state for the requested operation",
	CodeUnableToComputeSignature:            "Unable to compute the signature",
	CodeIncorrectMasterServerKeypairPrivate: "Master server key pair contains an invalid private key",
	CodeNoMasterServerKeypair:               "No master server key pair configured for the application",
	CodeGenericCryptographyError:            "Unknown cryptography error",
	CodeUnableToGenerateActivationID:        "Unable to generate a unique activation ID",
	CodeUnableToGenerateShortActivationID:   "Unable to generate a unique activation code",
	CodeUnableToGenerateRecoveryCode:        "Unable to generate a unique recovery code",
	CodeUnableToGenerateToken:               "Unable to generate a unique token ID",
	CodeInvalidRecoveryCode:                 "Invalid recovery code or PUK",
	CodeRecoveryCodeAlreadyExists:           "Recovery code already exists for the activation",
	CodeTokenNotFound:                       "Token with given token ID was not found",
	CodeConcurrency:                         "Request could not acquire the activation lock in time, retry the request",
}

// MessageFor returns the canonical message for a code, or the code itself
// when the code is unknown.
func MessageFor(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return code
}

// Codes lists every stable error code with its message, in a deterministic
// order. Backs the getErrorCodeList system operation.
func Codes() []CodeEntry {
	ordered := []string{
		CodeNoUserID, CodeNoApplicationID, CodeInvalidRequest, CodeInvalidKeyFormat,
		CodeActivationNotFound, CodeActivationExpired, CodeActivationIncorrectState,
		CodeUnableToComputeSignature, CodeIncorrectMasterServerKeypairPrivate,
		CodeNoMasterServerKeypair, CodeGenericCryptographyError,
		CodeUnableToGenerateActivationID, CodeUnableToGenerateShortActivationID,
		CodeUnableToGenerateRecoveryCode, CodeUnableToGenerateToken,
		CodeInvalidRecoveryCode, CodeRecoveryCodeAlreadyExists,
		CodeTokenNotFound, CodeConcurrency,
	}
	entries := make([]CodeEntry, 0, len(ordered))
	for _, code := range ordered {
		entries = append(entries, CodeEntry{Code: code, Message: messages[code]})
	}
	return entries
}

// CodeEntry is a single row of the error code list.
type CodeEntry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
