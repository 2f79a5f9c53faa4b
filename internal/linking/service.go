// Package linking runs the GitHub App installation handshake: it hands out
// state tokens and completes callbacks by verifying the state, exchanging the
// OAuth code and checking that the authorizing user owns the installation
// before recording it for the account.
package linking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.pilab.hu/ghlink/domain"
	"go.pilab.hu/ghlink/internal/audit"
	"go.pilab.hu/ghlink/internal/metrics"
	"go.pilab.hu/ghlink/internal/statetoken"
	"go.pilab.hu/ghlink/log"
)

// StateCodec issues and verifies state tokens.
type StateCodec interface {
	Issue(accountID string) (string, error)
	Verify(token string) (*statetoken.Claims, error)
}

// ReplayGuard reports false for a token id that was already consumed.
type ReplayGuard interface {
	Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error)
}

// GitHub is the part of the GitHub client the handshake needs.
type GitHub interface {
	InstallURL(appSlug, state string) string
	ExchangeCode(ctx context.Context, code, state string) (string, error)
	VerifyOwnership(ctx context.Context, userToken, installationID string) (bool, error)
}

// Service is safe for concurrent use.
type Service struct {
	codec     StateCodec
	replay    ReplayGuard
	github    GitHub
	directory domain.InstallationDirectory
	appSlug   string
	logger    log.Logger
	now       func() time.Time
}

// NewService wires the handshake. replay may be nil to allow a state token to
// be used more than once within its lifetime.
func NewService(
	codec StateCodec,
	replay ReplayGuard,
	github GitHub,
	directory domain.InstallationDirectory,
	appSlug string,
	logger log.Logger,
) *Service {
	return &Service{
		codec:     codec,
		replay:    replay,
		github:    github,
		directory: directory,
		appSlug:   appSlug,
		logger:    logger,
		now:       time.Now,
	}
}

// Begin mints a state token for accountID and returns the GitHub URL that
// starts the installation.
func (s *Service) Begin(accountID string) (installURL string, state string, err error) {
	state, err = s.codec.Issue(accountID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue state token: %w", err)
	}
	metrics.StateTokensIssuedTotal.Inc()

	return s.github.InstallURL(s.appSlug, state), state, nil
}

// Complete handles an installation callback. Each step is terminal on
// failure; the directory is only written after every check passed.
func (s *Service) Complete(ctx context.Context, params CallbackParams) (*domain.InstallationLink, error) {
	link, err := s.complete(ctx, params)
	metrics.LinkAttemptsTotal.WithLabelValues(resultOf(err)).Inc()

	return link, err
}

func (s *Service) complete(ctx context.Context, params CallbackParams) (*domain.InstallationLink, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.codec.Verify(params.State)
	if err != nil {
		s.logger.Info(ctx, "Rejected installation callback state", map[string]interface{}{
			"installation_id": params.InstallationID,
			"reason":          err.Error(),
		})
		return nil, err
	}

	if s.replay != nil {
		fresh, err := s.replay.Consume(ctx, claims.ID, claims.ExpiresAt.Time)
		if err != nil {
			return nil, fmt.Errorf("failed to check state token reuse: %w", err)
		}
		if !fresh {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrStateReplayed)
		}
	}

	fields := map[string]interface{}{
		"account_id":      claims.AccountID,
		"installation_id": params.InstallationID,
	}

	userToken, err := s.github.ExchangeCode(ctx, params.Code, params.State)
	if err != nil {
		s.logger.Warn(ctx, "OAuth code exchange failed", fields, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	if userToken == "" {
		return nil, ErrCodeExchangeFailed
	}

	owned, err := s.github.VerifyOwnership(ctx, userToken, params.InstallationID)
	if err != nil {
		s.logger.Warn(ctx, "Installation ownership check failed", fields, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	if !owned {
		s.logger.Warn(ctx, "Installation not owned by authorizing user", fields)
		audit.Log(audit.ActionLinkDenied, claims.AccountID, params.InstallationID, "", false, ErrInstallationNotOwned)
		return nil, ErrInstallationNotOwned
	}

	action, details := audit.ActionLinked, ""
	if previous, err := s.directory.Get(ctx, claims.AccountID); err == nil && previous.InstallationID != params.InstallationID {
		s.logger.Warn(ctx, "Replacing existing installation link", fields, map[string]interface{}{
			"previous_installation_id": previous.InstallationID,
		})
		action, details = audit.ActionRelinked, "previous="+previous.InstallationID
	}

	link := &domain.InstallationLink{
		AccountID:      claims.AccountID,
		InstallationID: params.InstallationID,
		SetupAction:    params.SetupAction,
		LinkedAt:       s.now().UTC(),
	}
	if err := s.directory.Put(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to store installation link: %w", err)
	}

	s.logger.Info(ctx, "Installation linked", fields)
	audit.Log(action, claims.AccountID, params.InstallationID, details, true, nil)

	return link, nil
}

// Lookup returns the link for accountID or domain.ErrLinkNotFound.
func (s *Service) Lookup(ctx context.Context, accountID string) (*domain.InstallationLink, error) {
	return s.directory.Get(ctx, accountID)
}

// Links returns every stored link.
func (s *Service) Links(ctx context.Context) ([]*domain.InstallationLink, error) {
	return s.directory.List(ctx)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultLinked
	case errors.Is(err, ErrMissingParameter):
		return metrics.ResultMissingParam
	case errors.Is(err, ErrExpiredToken):
		return metrics.ResultExpiredState
	case errors.Is(err, ErrInvalidToken):
		return metrics.ResultInvalidState
	case errors.Is(err, ErrCodeExchangeFailed):
		return metrics.ResultExchangeFailed
	case errors.Is(err, ErrInstallationNotOwned):
		return metrics.ResultNotOwned
	case errors.Is(err, ErrUpstreamUnavailable):
		return metrics.ResultUpstreamFailure
	default:
		return metrics.ResultStoreFailure
	}
}
