package service

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// HTTPAuth holds the credentials to authenticate on a remote API.
// At most one of the methods is used, in this order: client credentials, token, basic auth.
type HTTPAuth struct {
	Username string
	Password string
	Token    string

	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// NewHTTPClient returns an http.Client authenticating its requests with auth
func NewHTTPClient(ctx context.Context, auth HTTPAuth, timeout time.Duration) *http.Client {
	var client *http.Client
	switch {
	case auth.TokenURL != "" && auth.ClientID != "":
		cfg := clientcredentials.Config{
			ClientID:     auth.ClientID,
			ClientSecret: auth.ClientSecret,
			TokenURL:     auth.TokenURL,
			Scopes:       auth.Scopes,
		}
		client = cfg.Client(ctx)
	case auth.Token != "":
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: auth.Token, TokenType: "Bearer"}))
	case auth.Username != "":
		client = &http.Client{Transport: basicAuth{auth.Username, auth.Password, http.DefaultTransport}}
	default:
		client = &http.Client{}
	}
	client.Timeout = timeout
	return client
}

type basicAuth struct {
	username, password string
	next               http.RoundTripper
}

func (b basicAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(b.username, b.password)
	return b.next.RoundTrip(req)
}
