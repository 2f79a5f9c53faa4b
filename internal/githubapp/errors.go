package githubapp

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamUnavailable     = errors.New("github is unavailable")
	ErrCodeExchangeFailed      = errors.New("failed to exchange code for user token")
	ErrInstallationTokenFailed = errors.New("failed to obtain installation token")
	ErrInvalidPrivateKey       = errors.New("invalid github app private key")
	ErrMisconfigured           = errors.New("github app is misconfigured")
)

// StatusError reports a non-success response from a GitHub listing call.
type StatusError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: %s failed: status %d: %s", e.Operation, e.StatusCode, e.Message)
}
