// Package client is a typed Go client for the vantage HTTP API, used by
// the CLI. Sessions ride in cookies exactly like the browser frontend; a
// cached access token is additionally sent as a bearer header so a fresh
// process can authenticate without replaying the login.
package client

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	server     string
	httpClient *http.Client

	accessToken  string
	refreshToken string
}

type Option func(*Client)

// WithSessionTokens preloads a cached session: the access token rides as
// a bearer header, the refresh token as its cookie on refresh calls.
func WithSessionTokens(access, refresh string) Option {
	return func(c *Client) {
		c.accessToken = access
		c.refreshToken = refresh
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the given server base URL, e.g.
// "https://vantage.example.com".
func New(server string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		server: strings.TrimSuffix(server, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionTokens returns the most recent token pair observed on responses,
// for the CLI to persist between invocations.
func (c *Client) SessionTokens() (access, refresh string) {
	return c.accessToken, c.refreshToken
}

// urlBuilder assembles request URLs from the route constants, which carry
// {name}-style path parameters.
type urlBuilder struct {
	base  string
	path  string
	query url.Values
}

func (c *Client) url() *urlBuilder {
	return &urlBuilder{base: c.server, query: url.Values{}}
}

func (u *urlBuilder) setPath(path string) *urlBuilder {
	u.path = path
	return u
}

func (u *urlBuilder) setPathParam(key, value string) *urlBuilder {
	u.path = strings.ReplaceAll(u.path, "{"+key+"}", url.PathEscape(value))
	return u
}

func (u *urlBuilder) addQueryParam(key, value string) *urlBuilder {
	u.query.Add(key, value)
	return u
}

func (u *urlBuilder) build() string {
	s := u.base + u.path
	if len(u.query) > 0 {
		s += "?" + u.query.Encode()
	}
	return s
}
