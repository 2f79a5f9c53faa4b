// Package githubapp talks to GitHub on behalf of a GitHub App: it mints App
// credentials, exchanges OAuth codes, checks installation ownership and reads
// repositories through installation-scoped tokens.
package githubapp

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v76/github"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	githubOAuth2 "golang.org/x/oauth2/github"

	"go.pilab.hu/ghlink/internal/metrics"
)

const (
	DefaultAPIURL  = "https://api.github.com/"
	DefaultWebURL  = "https://github.com"
	DefaultTimeout = 10 * time.Second

	tracerName = "go.pilab.hu/ghlink/internal/githubapp"
)

// Config holds the App identity and endpoints.
type Config struct {
	AppID        string
	PrivateKey   *rsa.PrivateKey
	ClientID     string
	ClientSecret string

	// APIURL and WebURL point at github.com unless overridden (GHES, tests).
	APIURL string
	WebURL string

	// Timeout bounds every outbound call.
	Timeout time.Duration

	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	appID      string
	privateKey *rsa.PrivateKey
	apiURL     *url.URL
	webURL     string
	timeout    time.Duration
	httpClient *http.Client
	oauth      *oauth2.Config
	tracer     trace.Tracer
	now        func() time.Time
}

// New validates cfg and fills in defaults.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", ErrMisconfigured)
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if !strings.HasSuffix(cfg.APIURL, "/") {
		cfg.APIURL += "/"
	}
	apiURL, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("%w: api url: %v", ErrMisconfigured, err)
	}

	if cfg.WebURL == "" {
		cfg.WebURL = DefaultWebURL
	}
	cfg.WebURL = strings.TrimSuffix(cfg.WebURL, "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	endpoint := githubOAuth2.Endpoint
	if cfg.WebURL != DefaultWebURL {
		endpoint = oauth2.Endpoint{
			AuthURL:   cfg.WebURL + "/login/oauth/authorize",
			TokenURL:  cfg.WebURL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}

	return &Client{
		appID:      cfg.AppID,
		privateKey: cfg.PrivateKey,
		apiURL:     apiURL,
		webURL:     cfg.WebURL,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
		},
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}, nil
}

// InstallURL is where an account is sent to install the App.
func (c *Client) InstallURL(appSlug, state string) string {
	return fmt.Sprintf("%s/apps/%s/installations/new?state=%s",
		c.webURL, url.PathEscape(appSlug), url.QueryEscape(state))
}

// rest returns a go-github client authenticated with a bearer token.
func (c *Client) rest(token string) *github.Client {
	gh := github.NewClient(c.httpClient).WithAuthToken(token)
	gh.BaseURL = c.apiURL

	return gh
}

// call bounds fn by the configured timeout and records a span and a metric.
func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "github."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("github.operation", operation)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.ObserveUpstream(operation, start, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// responded reports whether GitHub answered at all. go-github returns a nil
// Response when the request never completed (transport error, timeout).
func responded(resp *github.Response) bool {
	return resp != nil && resp.Response != nil
}

func statusError(operation string, resp *github.Response, err error) error {
	if !responded(resp) {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, operation, err)
	}

	msg := err.Error()
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Message != "" {
		msg = ghErr.Message
	}

	return &StatusError{Operation: operation, StatusCode: resp.StatusCode, Message: msg}
}
