package githubapp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v76/github"

	"go.pilab.hu/ghlink/domain"
)

// InstallationToken mints an App credential and exchanges it for a token
// scoped to installationID.
func (c *Client) InstallationToken(ctx context.Context, installationID int64) (string, error) {
	appJWT, err := c.AppCredential()
	if err != nil {
		return "", err
	}

	var (
		token *github.InstallationToken
		resp  *github.Response
	)
	err = c.call(ctx, "CreateInstallationToken", func(ctx context.Context) error {
		var err error
		token, resp, err = c.rest(appJWT).Apps.CreateInstallationToken(ctx, installationID, nil)

		return err
	})
	if err != nil {
		if !responded(resp) {
			return "", statusError("CreateInstallationToken", resp, err)
		}

		return "", fmt.Errorf("%w: status %d", ErrInstallationTokenFailed, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusCreated || token.GetToken() == "" {
		return "", fmt.Errorf("%w: status %d", ErrInstallationTokenFailed, resp.StatusCode)
	}

	return token.GetToken(), nil
}

// ListRepositories returns the first page of repositories the installation
// token can access.
func (c *Client) ListRepositories(ctx context.Context, installationToken string) ([]domain.Repository, error) {
	var (
		list *github.ListRepositories
		resp *github.Response
	)
	err := c.call(ctx, "ListInstallationRepos", func(ctx context.Context) error {
		var err error
		list, resp, err = c.rest(installationToken).Apps.ListRepos(ctx, nil)

		return err
	})
	if err != nil {
		return nil, statusError("ListInstallationRepos", resp, err)
	}

	repos := make([]domain.Repository, 0, len(list.Repositories))
	for _, r := range list.Repositories {
		repos = append(repos, toRepository(r))
	}

	return repos, nil
}

// GetRepository returns repository metadata.
func (c *Client) GetRepository(ctx context.Context, installationToken, owner, repo string) (*domain.Repository, error) {
	var (
		r    *github.Repository
		resp *github.Response
	)
	err := c.call(ctx, "GetRepository", func(ctx context.Context) error {
		var err error
		r, resp, err = c.rest(installationToken).Repositories.Get(ctx, owner, repo)

		return err
	})
	if err != nil {
		return nil, statusError("GetRepository", resp, err)
	}

	out := toRepository(r)

	return &out, nil
}

// ListRootContents returns the entries at the root of the default branch.
func (c *Client) ListRootContents(ctx context.Context, installationToken, owner, repo string) ([]domain.ContentEntry, error) {
	var (
		file *github.RepositoryContent
		dir  []*github.RepositoryContent
		resp *github.Response
	)
	err := c.call(ctx, "GetContents", func(ctx context.Context) error {
		var err error
		file, dir, resp, err = c.rest(installationToken).Repositories.GetContents(ctx, owner, repo, "", nil)

		return err
	})
	if err != nil {
		return nil, statusError("GetContents", resp, err)
	}

	if file != nil {
		dir = append(dir, file)
	}

	entries := make([]domain.ContentEntry, 0, len(dir))
	for _, item := range dir {
		entries = append(entries, domain.ContentEntry{
			Name:    item.GetName(),
			Path:    item.GetPath(),
			Type:    item.GetType(),
			Size:    item.GetSize(),
			HTMLURL: item.GetHTMLURL(),
		})
	}

	return entries, nil
}

func toRepository(r *github.Repository) domain.Repository {
	return domain.Repository{
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		Private:       r.GetPrivate(),
		HTMLURL:       r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}
}
