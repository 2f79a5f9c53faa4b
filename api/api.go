// Package api exposes the installation handshake and the repository browser
// over HTTP.
//
//nolint:varnamelen
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"go.pilab.hu/ghlink/domain"
	apierr "go.pilab.hu/ghlink/errors"
	"go.pilab.hu/ghlink/internal/browse"
	"go.pilab.hu/ghlink/internal/linking"
	"go.pilab.hu/ghlink/log"
)

// LinkAPI holds the handler dependencies. All pages act on behalf of a single
// configured account.
type LinkAPI struct {
	linker    *linking.Service
	browser   *browse.Service
	accountID string
	logger    log.Logger
}

func NewLinkAPI(linker *linking.Service, browser *browse.Service, accountID string, logger log.Logger) *LinkAPI {
	return &LinkAPI{
		linker:    linker,
		browser:   browser,
		accountID: accountID,
		logger:    logger,
	}
}

// RegisterRoutes registers the page and handshake routes.
func (la *LinkAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/", la.IndexHandler)
	e.GET("/github/install", la.InstallHandler)
	e.GET("/github/callback", la.CallbackHandler)
	e.GET("/setup", la.SetupHandler)
	e.GET("/installations", la.InstallationsHandler)
	e.GET("/github/list-files", la.ListFilesHandler)
	e.GET("/healthz", la.HealthzHandler)
}

type indexView struct {
	*browse.Overview
	InstallURL string
}

// IndexHandler shows the account's repositories, or an install button when
// the account has not linked an installation yet.
func (la *LinkAPI) IndexHandler(c echo.Context) error {
	overview, err := la.browser.Overview(c.Request().Context(), la.accountID)
	if err != nil {
		return la.fail(c, err)
	}

	view := indexView{Overview: overview}
	if overview.Link == nil {
		view.InstallURL, _, err = la.linker.Begin(la.accountID)
		if err != nil {
			return la.fail(c, err)
		}
	}

	return c.Render(http.StatusOK, "index.html", view)
}

// InstallHandler starts the handshake by redirecting to the App's install
// page with a fresh state token.
func (la *LinkAPI) InstallHandler(c echo.Context) error {
	installURL, _, err := la.linker.Begin(la.accountID)
	if err != nil {
		return la.fail(c, err)
	}

	return c.Redirect(http.StatusFound, installURL)
}

// CallbackHandler completes the handshake GitHub redirects back to.
func (la *LinkAPI) CallbackHandler(c echo.Context) error {
	var params linking.CallbackParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		return c.JSON(http.StatusBadRequest, apierr.New(apierr.InvalidRequest, "Malformed query string."))
	}

	if _, err := la.linker.Complete(c.Request().Context(), params); err != nil {
		return la.fail(c, err)
	}

	return c.Redirect(http.StatusFound, "/setup")
}

func (la *LinkAPI) SetupHandler(c echo.Context) error {
	link, err := la.linker.Lookup(c.Request().Context(), la.accountID)
	if err != nil && !errors.Is(err, domain.ErrLinkNotFound) {
		return la.fail(c, err)
	}

	return c.Render(http.StatusOK, "setup.html", link)
}

// InstallationsHandler lists every recorded account link.
func (la *LinkAPI) InstallationsHandler(c echo.Context) error {
	links, err := la.linker.Links(c.Request().Context())
	if err != nil {
		return la.fail(c, err)
	}

	return c.Render(http.StatusOK, "installations.html", links)
}

// ListFilesHandler renders the root of a repository the account's
// installation can read.
func (la *LinkAPI) ListFilesHandler(c echo.Context) error {
	installationID := c.QueryParam("installation_id")
	owner := c.QueryParam("owner")
	repo := c.QueryParam("repo")

	var missing []string
	for _, p := range []struct{ name, value string }{
		{"installation_id", installationID},
		{"owner", owner},
		{"repo", repo},
	} {
		if p.value == "" {
			missing = append(missing, p.name)
		}
	}
	if len(missing) > 0 {
		return c.JSON(http.StatusBadRequest,
			apierr.NewMissingParameter("Missing parameter: "+strings.Join(missing, ", ")))
	}

	listing, err := la.browser.ListFiles(c.Request().Context(), la.accountID, installationID, owner, repo)
	if err != nil {
		return la.fail(c, err)
	}

	return c.Render(http.StatusOK, "files.html", listing)
}

func (la *LinkAPI) HealthzHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
