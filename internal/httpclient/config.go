package httpclient

import (
	"context"
	"time"
)

// HTTPClientConfig holds the transport settings shared by the registry and notifier clients
type HTTPClientConfig struct {
	Timeout               time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	IdleConnTimeout       time.Duration
	ExpectContinueTimeout time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	InsecureSkipVerify    bool
	FollowRedirects       bool
	MaxRedirects          int
	EnableHTTP2           bool
	UserAgent             string
	CustomHeaders         map[string]string
	Proxy                 string
}

// DefaultHTTPClientConfig returns sane defaults for small JSON APIs
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:               15 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		MaxConnsPerHost:       4,
		FollowRedirects:       true,
		MaxRedirects:          5,
		EnableHTTP2:           true,
		CustomHeaders:         map[string]string{},
	}
}

// HTTPRequest is a buffered request. Body is a byte slice so it can be resent on retry.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Context context.Context
}

// HTTPResponse is a fully read response
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status
func (r *HTTPResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
