package httpclient

import (
	"time"

	"github.com/rs/zerolog"
)

// HTTPClientBuilder builds HTTP clients with fluent interface
type HTTPClientBuilder struct {
	config      HTTPClientConfig
	logger      zerolog.Logger
	retryConfig *RetryHandlerConfig
}

// NewHTTPClientBuilder creates a new HTTPClientBuilder with default configuration
func NewHTTPClientBuilder(logger zerolog.Logger) *HTTPClientBuilder {
	return &HTTPClientBuilder{
		config: DefaultHTTPClientConfig(),
		logger: logger,
	}
}

// WithTimeout sets the request timeout
func (b *HTTPClientBuilder) WithTimeout(timeout time.Duration) *HTTPClientBuilder {
	if timeout > 0 {
		b.config.Timeout = timeout
	}
	return b
}

// WithUserAgent sets the User-Agent header
func (b *HTTPClientBuilder) WithUserAgent(userAgent string) *HTTPClientBuilder {
	b.config.UserAgent = userAgent
	return b
}

// WithHeader adds a header sent with every request
func (b *HTTPClientBuilder) WithHeader(key, value string) *HTTPClientBuilder {
	if b.config.CustomHeaders == nil {
		b.config.CustomHeaders = map[string]string{}
	}
	b.config.CustomHeaders[key] = value
	return b
}

// WithFollowRedirects sets whether to follow redirects
func (b *HTTPClientBuilder) WithFollowRedirects(follow bool) *HTTPClientBuilder {
	b.config.FollowRedirects = follow
	return b
}

// WithHTTP2 enables or disables HTTP/2 support
func (b *HTTPClientBuilder) WithHTTP2(enabled bool) *HTTPClientBuilder {
	b.config.EnableHTTP2 = enabled
	return b
}

// WithProxy routes requests through the given proxy URL
func (b *HTTPClientBuilder) WithProxy(proxy string) *HTTPClientBuilder {
	b.config.Proxy = proxy
	return b
}

// WithRetry attaches a retry handler to the built client
func (b *HTTPClientBuilder) WithRetry(cfg RetryHandlerConfig) *HTTPClientBuilder {
	b.retryConfig = &cfg
	return b
}

// Build creates and returns a new HTTPClient
func (b *HTTPClientBuilder) Build() (*HTTPClient, error) {
	client, err := NewHTTPClient(b.config, b.logger)
	if err != nil {
		return nil, err
	}
	if b.retryConfig != nil {
		client.retryHandler = NewRetryHandler(*b.retryConfig, b.logger)
	}
	return client, nil
}
