package githubapp_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/ghlink/internal/githubapp"
)

var testKey = sync.OnceValue(func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
})

func newTestClient(t *testing.T, baseURL string) *githubapp.Client {
	t.Helper()
	client, err := githubapp.New(githubapp.Config{
		AppID:        "4242",
		PrivateKey:   testKey(),
		ClientID:     "gh-client-id",
		ClientSecret: "gh-client-secret",
		APIURL:       baseURL,
		WebURL:       baseURL,
		Timeout:      2 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNew_RequiresClientCredentials(t *testing.T) {
	_, err := githubapp.New(githubapp.Config{ClientID: "id"})
	assert.ErrorIs(t, err, githubapp.ErrMisconfigured)
}

func TestParsePrivateKey(t *testing.T) {
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(testKey()),
	})

	key, err := githubapp.ParsePrivateKey(pemBytes)
	require.NoError(t, err)
	assert.True(t, key.Equal(testKey()))

	_, err = githubapp.ParsePrivateKey([]byte("garbage"))
	assert.ErrorIs(t, err, githubapp.ErrInvalidPrivateKey)
}

func TestClient_AppCredential(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")

	signed, err := client.AppCredential()
	require.NoError(t, err)

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (any, error) {
		return &testKey().PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "4242", claims.Issuer)
	assert.Equal(t, githubapp.AppCredentialTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.True(t, claims.IssuedAt.Before(time.Now()))
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestClient_AppCredentialWithoutKey(t *testing.T) {
	client, err := githubapp.New(githubapp.Config{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	_, err = client.AppCredential()
	assert.ErrorIs(t, err, githubapp.ErrMisconfigured)
}

func TestClient_InstallURL(t *testing.T) {
	client, err := githubapp.New(githubapp.Config{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	assert.Equal(t,
		"https://github.com/apps/my-app/installations/new?state=a.b%2Bc",
		client.InstallURL("my-app", "a.b+c"))
}

func TestClient_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login/oauth/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "gh-client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "gh-client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "state-token", r.PostForm.Get("state"))

		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("code") {
		case "abc":
			_, _ = w.Write([]byte(`{"access_token":"u-tok","token_type":"bearer","scope":""}`))
		default:
			_, _ = w.Write([]byte(`{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	token, err := client.ExchangeCode(t.Context(), "abc", "state-token")
	require.NoError(t, err)
	assert.Equal(t, "u-tok", token)

	_, err = client.ExchangeCode(t.Context(), "used-code", "state-token")
	assert.ErrorIs(t, err, githubapp.ErrCodeExchangeFailed)
}

func TestClient_ExchangeCode_UpstreamFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	client := newTestClient(t, server.URL)

	_, err := client.ExchangeCode(t.Context(), "abc", "state")
	assert.ErrorIs(t, err, githubapp.ErrUpstreamUnavailable)

	server.Close()
	_, err = client.ExchangeCode(t.Context(), "abc", "state")
	assert.ErrorIs(t, err, githubapp.ErrUpstreamUnavailable)
}

func TestClient_VerifyOwnership(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/installations", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer u-tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count":3,"installations":[{"id":101},{"id":202},{"id":303}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	owned, err := client.VerifyOwnership(t.Context(), "u-tok", "202")
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = client.VerifyOwnership(t.Context(), "u-tok", "999")
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = client.VerifyOwnership(t.Context(), "revoked-token", "202")
	require.NoError(t, err, "a rejected listing is a denial, not an error")
	assert.False(t, owned)
}

func TestClient_VerifyOwnership_EmptyListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count":0,"installations":[]}`))
	}))
	defer server.Close()

	owned, err := newTestClient(t, server.URL).VerifyOwnership(t.Context(), "u-tok", "202")
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestClient_VerifyOwnership_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client, err := githubapp.New(githubapp.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		APIURL:       server.URL,
		Timeout:      50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.VerifyOwnership(t.Context(), "u-tok", "202")
	assert.ErrorIs(t, err, githubapp.ErrUpstreamUnavailable)
}

func TestClient_InstallationToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/app/installations/42/access_tokens":
			require.Equal(t, http.MethodPost, r.Method)
			bearer := r.Header.Get("Authorization")
			require.Greater(t, len(bearer), len("Bearer "))
			_, err := jwt.Parse(bearer[len("Bearer "):], func(*jwt.Token) (any, error) {
				return &testKey().PublicKey, nil
			})
			require.NoError(t, err)

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"inst-tok","expires_at":"2030-01-01T00:00:00Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	token, err := client.InstallationToken(t.Context(), 42)
	require.NoError(t, err)
	assert.Equal(t, "inst-tok", token)

	_, err = client.InstallationToken(t.Context(), 7)
	assert.ErrorIs(t, err, githubapp.ErrInstallationTokenFailed)
}

func TestClient_Listings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer inst-tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/installation/repositories":
			_, _ = w.Write([]byte(`{"total_count":2,"repositories":[
				{"name":"api","full_name":"octo/api","private":true,"html_url":"https://github.com/octo/api","owner":{"login":"octo"}},
				{"name":"web","full_name":"octo/web","html_url":"https://github.com/octo/web","owner":{"login":"octo"}}
			]}`))
		case "/repos/octo/api":
			_, _ = w.Write([]byte(`{"name":"api","full_name":"octo/api","default_branch":"main","owner":{"login":"octo"}}`))
		case "/repos/octo/api/contents", "/repos/octo/api/contents/":
			_, _ = w.Write([]byte(`[
				{"name":"README.md","path":"README.md","type":"file","size":120,"html_url":"https://github.com/octo/api/blob/main/README.md"},
				{"name":"cmd","path":"cmd","type":"dir","size":0,"html_url":"https://github.com/octo/api/tree/main/cmd"}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	repos, err := client.ListRepositories(t.Context(), "inst-tok")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "octo/api", repos[0].FullName)
	assert.Equal(t, "octo", repos[0].Owner)
	assert.True(t, repos[0].Private)

	repo, err := client.GetRepository(t.Context(), "inst-tok", "octo", "api")
	require.NoError(t, err)
	assert.Equal(t, "main", repo.DefaultBranch)

	entries, err := client.ListRootContents(t.Context(), "inst-tok", "octo", "api")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "README.md", entries[0].Name)
	assert.Equal(t, 120, entries[0].Size)
	assert.True(t, entries[1].IsDir())

	_, err = client.ListRootContents(t.Context(), "inst-tok", "octo", "missing")
	var statusErr *githubapp.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "Not Found", statusErr.Message)
}
