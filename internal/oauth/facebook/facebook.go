// Package facebook implementa login social con Facebook (Graph API).
// A diferencia de Google no hay OIDC: el perfil se obtiene con un GET
// a /me con los fields pedidos.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dcruzado/vitrina/internal/oauth"
)

const (
	authEndpoint  = "https://www.facebook.com/v18.0/dialog/oauth"
	tokenEndpoint = "https://graph.facebook.com/v18.0/oauth/access_token"
	userEndpoint  = "https://graph.facebook.com/me"
)

type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	http *http.Client
}

func New(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return "facebook" }

func (c *Client) AuthURL(ctx context.Context, state string) (string, error) {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", "email,public_profile")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange canjea el code por un access token. El endpoint de Facebook
// es un GET con query params.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	u, _ := url.Parse(tokenEndpoint)
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("client_secret", c.ClientSecret)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("code", code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var tr struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Error       *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.Error != nil {
		return "", fmt.Errorf("facebook oauth error: %s (%d)", tr.Error.Message, tr.Error.Code)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("no access_token in response")
	}
	return tr.AccessToken, nil
}

func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	u, _ := url.Parse(userEndpoint)
	q := u.Query()
	q.Set("fields", "id,name,email,picture")
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("graph /me http %d", resp.StatusCode)
	}

	var me struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, err
	}
	if me.ID == "" {
		return nil, fmt.Errorf("graph /me without id")
	}
	return &oauth.Profile{
		ProviderID: me.ID,
		Email:      me.Email,
		Name:       me.Name,
		Picture:    me.Picture.Data.URL,
	}, nil
}
