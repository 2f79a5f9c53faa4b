package errors

import "fmt"

// APIError is the JSON error body returned by every endpoint. It keeps the
// shape of an OAuth 2.0 error response.
type APIError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Stable error codes. Clients branch on these, not on descriptions.
const (
	MissingParameter        = "missing_parameter"
	InvalidState            = "invalid_state"
	ExpiredState            = "expired_state"
	CodeExchangeFailed      = "code_exchange_failed"
	InstallationNotOwned    = "installation_not_owned"
	InstallationTokenFailed = "installation_token_failed"
	InvalidRequest          = "invalid_request"
	UpstreamUnavailable     = "upstream_unavailable"
	UpstreamError           = "upstream_error"
	ServerError             = "server_error"
)

func New(code, description string) *APIError {
	return &APIError{Code: code, Description: description}
}

func NewMissingParameter(description string) *APIError {
	return New(MissingParameter, description)
}

func NewInvalidState() *APIError {
	return New(InvalidState, "Invalid state token.")
}

func NewExpiredState() *APIError {
	return New(ExpiredState, "State token has expired. Restart the installation.")
}

func NewCodeExchangeFailed() *APIError {
	return New(CodeExchangeFailed, "Failed to exchange code for user token.")
}

func NewInstallationNotOwned() *APIError {
	return New(InstallationNotOwned, "Installation is not associated with this user.")
}

func NewInstallationTokenFailed() *APIError {
	return New(InstallationTokenFailed, "Failed to obtain installation token.")
}

func NewUpstreamUnavailable() *APIError {
	return New(UpstreamUnavailable, "GitHub is unavailable, try again later.")
}

func NewServerError(description string) *APIError {
	return New(ServerError, description)
}
