// Package authprovider talks to the hosted identity service (a GoTrue
// compatible REST API) that owns portal credentials and profiles.
package authprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

var (
	// ErrRejected means the service answered and refused the request, for
	// example wrong credentials or an email already registered.
	ErrRejected = errors.New("identity service rejected the request")
	// ErrUnavailable covers transport failures and 5xx answers.
	ErrUnavailable = errors.New("identity service unavailable")
	// ErrMalformed means a 2xx answer lacked required fields.
	ErrMalformed = errors.New("identity service returned a malformed response")
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RemoteUser is the identity service's view of a user.
type RemoteUser struct {
	ID    string
	Email string
	Role  string
	Name  string
}

// Grant is a successful sign-in.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         RemoteUser
}

// Profile is a row of the profiles table exposed by the service.
type Profile struct {
	ID    string
	Email string
	Name  string
	Role  string
}

type Client struct {
	http *resty.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c}
}

// SignInWithPassword performs one password grant attempt.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Grant, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/auth/v1/token")
	if err := classify(resp, err); err != nil {
		return nil, err
	}
	return parseGrant(resp.Body())
}

// SignUp creates an account with role and name metadata. When the service
// requires email confirmation the grant carries no access token.
func (c *Client) SignUp(ctx context.Context, email, password, name, role string) (*Grant, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"email":    email,
			"password": password,
			"data":     map[string]string{"name": name, "role": role},
		}).
		Post("/auth/v1/signup")
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	body := resp.Body()
	if gjson.GetBytes(body, "access_token").Exists() {
		return parseGrant(body)
	}
	u, err := parseUser(gjson.ParseBytes(body))
	if err != nil {
		return nil, err
	}
	return &Grant{User: u}, nil
}

// GetUser validates an access token and returns its user.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*RemoteUser, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get("/auth/v1/user")
	if err := classify(resp, err); err != nil {
		return nil, err
	}
	u, err := parseUser(gjson.ParseBytes(resp.Body()))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the access token's refresh tokens.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Post("/auth/v1/logout")
	return classify(resp, err)
}

// FetchProfile reads the profile row for a user. It returns nil without error
// when no row exists.
func (c *Client) FetchProfile(ctx context.Context, accessToken, userID string) (*Profile, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParams(map[string]string{
			"id":     "eq." + userID,
			"select": "id,email,name,role",
		}).
		Get("/rest/v1/profiles")
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}
	row := gjson.GetBytes(body, "0")
	if !row.Exists() {
		return nil, nil
	}
	return &Profile{
		ID:    row.Get("id").String(),
		Email: row.Get("email").String(),
		Name:  row.Get("name").String(),
		Role:  row.Get("role").String(),
	}, nil
}

func classify(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code >= 500 || code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		msg := gjson.GetBytes(resp.Body(), "error_description").String()
		if msg == "" {
			msg = gjson.GetBytes(resp.Body(), "msg").String()
		}
		return fmt.Errorf("%w: status %d: %s", ErrRejected, code, msg)
	}
}

func parseGrant(body []byte) (*Grant, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}
	root := gjson.ParseBytes(body)
	token := root.Get("access_token").String()
	if token == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrMalformed)
	}
	u, err := parseUser(root.Get("user"))
	if err != nil {
		return nil, err
	}
	return &Grant{
		AccessToken:  token,
		RefreshToken: root.Get("refresh_token").String(),
		ExpiresIn:    time.Duration(root.Get("expires_in").Int()) * time.Second,
		User:         u,
	}, nil
}

func parseUser(u gjson.Result) (RemoteUser, error) {
	id := u.Get("id").String()
	email := u.Get("email").String()
	if id == "" || email == "" {
		return RemoteUser{}, fmt.Errorf("%w: user without id or email", ErrMalformed)
	}
	return RemoteUser{
		ID:    id,
		Email: email,
		Role:  u.Get("user_metadata.role").String(),
		Name:  u.Get("user_metadata.name").String(),
	}, nil
}
