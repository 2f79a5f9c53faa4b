package githubapp

import (
	"context"
	"strconv"

	"github.com/google/go-github/v76/github"
	"github.com/rs/zerolog/log"
)

// maxInstallationsPerPage is GitHub's page size limit; only the first page is
// consulted.
const maxInstallationsPerPage = 100

// VerifyOwnership reports whether the holder of userToken can access the
// installation. A non-success answer from GitHub is a plain false; only a
// missing answer (transport failure, timeout) is returned as
// ErrUpstreamUnavailable.
func (c *Client) VerifyOwnership(ctx context.Context, userToken, installationID string) (bool, error) {
	var (
		installations []*github.Installation
		resp          *github.Response
	)

	err := c.call(ctx, "ListUserInstallations", func(ctx context.Context) error {
		var err error
		installations, resp, err = c.rest(userToken).Apps.ListUserInstallations(ctx,
			&github.ListOptions{PerPage: maxInstallationsPerPage})

		return err
	})
	if err != nil {
		if responded(resp) {
			log.Warn().
				Int("status", resp.StatusCode).
				Err(err).
				Msg("GitHub rejected the user installations listing")

			return false, nil
		}

		return false, statusError("ListUserInstallations", resp, err)
	}

	return containsInstallation(installations, installationID), nil
}

func containsInstallation(installations []*github.Installation, installationID string) bool {
	for _, inst := range installations {
		if inst != nil && strconv.FormatInt(inst.GetID(), 10) == installationID {
			return true
		}
	}

	return false
}
