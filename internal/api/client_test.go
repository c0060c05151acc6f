package api

import (
	"bytes"
	"io"
	"net/url"
	"testing"

	http2 "github.com/bogdanfinn/fhttp"
	"github.com/bogdanfinn/tls-client/bandwidth"

	"github.com/brilliance/hwachat/internal/config"
)

const testAppID = "8f14e45f-ceea-467f-a1d2-0c3f2b6e9a01"

// mockHTTPClient implements tls_client.HttpClient for testing
type mockHTTPClient struct {
	doFunc   func(req *http2.Request) (*http2.Response, error)
	requests []*http2.Request
}

func (m *mockHTTPClient) GetCookies(u *url.URL) []*http2.Cookie          { return nil }
func (m *mockHTTPClient) SetCookies(u *url.URL, cookies []*http2.Cookie) {}
func (m *mockHTTPClient) SetCookieJar(jar http2.CookieJar)               {}
func (m *mockHTTPClient) GetCookieJar() http2.CookieJar                  { return nil }
func (m *mockHTTPClient) SetProxy(proxyUrl string) error                 { return nil }
func (m *mockHTTPClient) GetProxy() string                               { return "" }
func (m *mockHTTPClient) SetFollowRedirect(followRedirect bool)          {}
func (m *mockHTTPClient) GetFollowRedirect() bool                        { return false }
func (m *mockHTTPClient) CloseIdleConnections()                          {}
func (m *mockHTTPClient) Get(url string) (*http2.Response, error)        { return nil, nil }
func (m *mockHTTPClient) Head(url string) (*http2.Response, error)       { return nil, nil }
func (m *mockHTTPClient) Post(url, contentType string, body io.Reader) (*http2.Response, error) {
	return nil, nil
}
func (m *mockHTTPClient) GetBandwidthTracker() bandwidth.BandwidthTracker { return nil }

func (m *mockHTTPClient) Do(req *http2.Request) (*http2.Response, error) {
	m.requests = append(m.requests, req)
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return jsonResponse(200, `{}`), nil
}

func jsonResponse(status int, body string) *http2.Response {
	return &http2.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http2.Header),
	}
}

func testCreds() config.Credentials {
	return config.Credentials{Token: "tok-123", ApplicationID: testAppID}
}

func newTestClient(t *testing.T, mock *mockHTTPClient) *Client {
	t.Helper()
	client, err := NewClient("https://api.example.com/", testCreds(), WithHTTPClient(mock))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds config.Credentials
	}{
		{name: "missing token", creds: config.Credentials{ApplicationID: testAppID}},
		{name: "missing app id", creds: config.Credentials{Token: "tok"}},
		{name: "malformed app id", creds: config.Credentials{Token: "tok", ApplicationID: "not-a-uuid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient("https://api.example.com", tt.creds); err == nil {
				t.Error("NewClient() error = nil, want credential error")
			}
		})
	}
}

func TestClientTrimsTrailingSlash(t *testing.T) {
	client := newTestClient(t, &mockHTTPClient{})
	if got := client.baseURL; got != "https://api.example.com" {
		t.Errorf("baseURL = %q", got)
	}
}

func TestRequestCarriesAuth(t *testing.T) {
	mock := &mockHTTPClient{doFunc: func(*http2.Request) (*http2.Response, error) {
		return jsonResponse(200, `{"groups":[],"pagination":{"totalPages":0}}`), nil
	}}
	client := newTestClient(t, mock)

	list := NewGroupList(client, 10)
	if _, err := list.FetchPage(); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if len(mock.requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(mock.requests))
	}
	req := mock.requests[0]
	if got := req.Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("X-Hwa-Application-Id"); got != testAppID {
		t.Errorf("X-Hwa-Application-Id = %q", got)
	}
}
