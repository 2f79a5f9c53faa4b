// Package browse lets a linked account look at the repositories and files its
// GitHub App installation can read.
package browse

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"go.pilab.hu/ghlink/domain"
)

var (
	ErrInvalidInstallationID = errors.New("installation id must be a positive integer")
	ErrInstallationNotLinked = errors.New("installation is not linked to this account")
)

// GitHub is the part of the GitHub client browsing needs.
type GitHub interface {
	InstallationToken(ctx context.Context, installationID int64) (string, error)
	ListRepositories(ctx context.Context, installationToken string) ([]domain.Repository, error)
	GetRepository(ctx context.Context, installationToken, owner, repo string) (*domain.Repository, error)
	ListRootContents(ctx context.Context, installationToken, owner, repo string) ([]domain.ContentEntry, error)
}

// Overview is what the index page shows for an account.
type Overview struct {
	AccountID    string
	Link         *domain.InstallationLink // nil when the account has not installed the App
	Repositories []domain.Repository
}

// Listing is the root directory of one repository.
type Listing struct {
	InstallationID string
	Repository     domain.Repository
	Entries        []domain.ContentEntry
}

type Service struct {
	github    GitHub
	directory domain.InstallationDirectory
}

func NewService(github GitHub, directory domain.InstallationDirectory) *Service {
	return &Service{github: github, directory: directory}
}

// Overview resolves the account's installation and, when there is one, lists
// the repositories it can access.
func (s *Service) Overview(ctx context.Context, accountID string) (*Overview, error) {
	out := &Overview{AccountID: accountID}

	link, err := s.directory.Get(ctx, accountID)
	if errors.Is(err, domain.ErrLinkNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Link = link

	installationID, err := ParseInstallationID(link.InstallationID)
	if err != nil {
		return nil, err
	}

	token, err := s.github.InstallationToken(ctx, installationID)
	if err != nil {
		return nil, err
	}

	out.Repositories, err = s.github.ListRepositories(ctx, token)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out.Repositories, func(i, j int) bool {
		return strings.ToLower(out.Repositories[i].FullName) < strings.ToLower(out.Repositories[j].FullName)
	})

	return out, nil
}

// ListFiles returns the root entries of owner/repo, directories first. The
// installation must be the one linked to accountID.
func (s *Service) ListFiles(ctx context.Context, accountID, installationID, owner, repo string) (*Listing, error) {
	id, err := ParseInstallationID(installationID)
	if err != nil {
		return nil, err
	}

	link, err := s.directory.Get(ctx, accountID)
	if errors.Is(err, domain.ErrLinkNotFound) {
		return nil, ErrInstallationNotLinked
	}
	if err != nil {
		return nil, err
	}
	if link.InstallationID != installationID {
		return nil, ErrInstallationNotLinked
	}

	token, err := s.github.InstallationToken(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &Listing{
		InstallationID: installationID,
		Repository:     domain.Repository{Owner: owner, Name: repo, FullName: owner + "/" + repo},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.github.GetRepository(gctx, token, owner, repo)
		if err != nil {
			return err
		}
		out.Repository = *r
		return nil
	})
	g.Go(func() error {
		entries, err := s.github.ListRootContents(gctx, token, owner, repo)
		if err != nil {
			return err
		}
		out.Entries = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortEntries(out.Entries)

	return out, nil
}

// SortEntries orders directories before everything else, then by
// case-insensitive name.
func SortEntries(entries []domain.ContentEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

func ParseInstallationID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInstallationID, raw)
	}

	return id, nil
}
