// Package api implements the Homework Assistant REST client: attachment
// uploads and the paginated conversation-group listing.
package api

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/brilliance/hwachat/internal/config"
)

// Client is an authenticated HTTP client for the Homework Assistant API.
type Client struct {
	httpClient tls_client.HttpClient
	baseURL    string
	creds      config.Credentials
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used in tests.
func WithHTTPClient(hc tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL string, creds config.Credentials, opts ...ClientOption) (*Client, error) {
	if err := config.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(60),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}
		hc, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = hc
	}

	return client, nil
}

// do issues one authenticated request against the API.
func (c *Client) do(method, path string, query url.Values, contentType string, body io.Reader) (*fhttp.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := fhttp.NewRequest(method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	req.Header.Set("X-Hwa-Application-Id", c.creds.ApplicationID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

// twoXX reports whether status is a success code.
func twoXX(status int) bool {
	return status >= 200 && status <= 299
}
