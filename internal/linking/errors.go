package linking

import (
	"errors"

	"go.pilab.hu/ghlink/internal/githubapp"
	"go.pilab.hu/ghlink/internal/statetoken"
)

var (
	ErrMissingParameter     = errors.New("missing parameter")
	ErrInstallationNotOwned = errors.New("installation is not associated with this user")
	ErrStateReplayed        = errors.New("state token already used")

	// Re-exported so callers only need this package to classify failures.
	ErrInvalidToken        = statetoken.ErrInvalidToken
	ErrExpiredToken        = statetoken.ErrExpiredToken
	ErrCodeExchangeFailed  = githubapp.ErrCodeExchangeFailed
	ErrUpstreamUnavailable = githubapp.ErrUpstreamUnavailable
)
