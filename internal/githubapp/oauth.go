package githubapp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// ExchangeCode trades a one-time OAuth code for a user access token. The state
// is forwarded so GitHub can bind it to the code; it is not checked locally.
func (c *Client) ExchangeCode(ctx context.Context, code, state string) (string, error) {
	var token *oauth2.Token

	err := c.call(ctx, "ExchangeCode", func(ctx context.Context) error {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

		var err error
		token, err = c.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("state", state))

		return err
	})
	if err != nil {
		return "", classifyExchangeError(err)
	}

	if token == nil || token.AccessToken == "" {
		return "", ErrCodeExchangeFailed
	}

	return token.AccessToken, nil
}

func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: token endpoint status %d", ErrUpstreamUnavailable, retrieveErr.Response.StatusCode)
		}

		return fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: token endpoint: %v", ErrUpstreamUnavailable, err)
	}

	// x/oauth2 reports a 2xx body without access_token as a plain error.
	return fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
}
