package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "go.pilab.hu/ghlink/errors"
	"go.pilab.hu/ghlink/internal/browse"
	"go.pilab.hu/ghlink/internal/githubapp"
	"go.pilab.hu/ghlink/internal/linking"
)

// ErrorResponse maps a service error to the status and body the client sees.
func ErrorResponse(err error) (int, *apierr.APIError) {
	var statusErr *githubapp.StatusError

	switch {
	case errors.Is(err, linking.ErrMissingParameter):
		return http.StatusBadRequest, apierr.NewMissingParameter(err.Error())
	case errors.Is(err, linking.ErrExpiredToken):
		return http.StatusBadRequest, apierr.NewExpiredState()
	case errors.Is(err, linking.ErrInvalidToken):
		return http.StatusBadRequest, apierr.NewInvalidState()
	case errors.Is(err, linking.ErrCodeExchangeFailed):
		return http.StatusBadRequest, apierr.NewCodeExchangeFailed()
	case errors.Is(err, linking.ErrInstallationNotOwned), errors.Is(err, browse.ErrInstallationNotLinked):
		return http.StatusForbidden, apierr.NewInstallationNotOwned()
	case errors.Is(err, githubapp.ErrInstallationTokenFailed):
		return http.StatusBadRequest, apierr.NewInstallationTokenFailed()
	case errors.Is(err, browse.ErrInvalidInstallationID):
		return http.StatusBadRequest, apierr.New(apierr.InvalidRequest, "installation_id must be a positive integer.")
	case errors.Is(err, linking.ErrUpstreamUnavailable):
		return http.StatusBadGateway, apierr.NewUpstreamUnavailable()
	case errors.As(err, &statusErr):
		status := statusErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return status, apierr.New(apierr.UpstreamError, statusErr.Message)
	default:
		return http.StatusInternalServerError, apierr.NewServerError("Internal server error.")
	}
}

func (la *LinkAPI) fail(c echo.Context, err error) error {
	status, body := ErrorResponse(err)

	fields := map[string]interface{}{
		"path":   c.Path(),
		"status": status,
		"code":   body.Code,
	}
	if status >= http.StatusInternalServerError {
		la.logger.Error(c.Request().Context(), "request failed", err, fields)
	} else {
		la.logger.Warn(c.Request().Context(), "request rejected: "+err.Error(), fields)
	}

	return c.JSON(status, body)
}
