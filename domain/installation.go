package domain

import (
	"context"
	"errors"
	"time"
)

var ErrLinkNotFound = errors.New("installation link not found")

// InstallationLink associates a local account with a GitHub App installation.
type InstallationLink struct {
	AccountID      string    `bson:"_id"                    json:"account_id"`
	InstallationID string    `bson:"installation_id"        json:"installation_id"`
	SetupAction    string    `bson:"setup_action,omitempty" json:"setup_action,omitempty"` // "install" or "update"
	LinkedAt       time.Time `bson:"linked_at"              json:"linked_at"`
}

// InstallationDirectory stores at most one installation link per account.
// Put overwrites any existing link for the same account.
type InstallationDirectory interface {
	// Get returns ErrLinkNotFound when the account has no link.
	Get(ctx context.Context, accountID string) (*InstallationLink, error)
	Put(ctx context.Context, link *InstallationLink) error
	List(ctx context.Context) ([]*InstallationLink, error)
}

// Repository is the subset of a GitHub repository shown to an account.
type Repository struct {
	FullName      string `json:"full_name"`
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// ContentEntry is one item of a repository directory listing.
type ContentEntry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Type    string `json:"type"` // "dir", "file", "symlink" or "submodule"
	Size    int    `json:"size"`
	HTMLURL string `json:"html_url"`
}

func (e ContentEntry) IsDir() bool { return e.Type == "dir" }
