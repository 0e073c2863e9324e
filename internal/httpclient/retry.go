package httpclient

import (
	"context"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// RetryHandler handles HTTP request retries with exponential backoff
type RetryHandler struct {
	maxRetries         int
	baseDelay          time.Duration
	maxDelay           time.Duration
	enableJitter       bool
	retryNetworkErrors bool
	retryStatusCodes   map[int]bool
	logger             zerolog.Logger
}

// RetryHandlerConfig configuration for retry handler
type RetryHandlerConfig struct {
	MaxRetries         int           `json:"max_retries"`
	BaseDelay          time.Duration `json:"base_delay"`
	MaxDelay           time.Duration `json:"max_delay"`
	EnableJitter       bool          `json:"enable_jitter"`
	RetryNetworkErrors bool          `json:"retry_network_errors"`
	RetryStatusCodes   []int         `json:"retry_status_codes"`
}

// DefaultRetryHandlerConfig retries rate limiting and gateway errors
func DefaultRetryHandlerConfig() RetryHandlerConfig {
	return RetryHandlerConfig{
		MaxRetries:   3,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		EnableJitter: true,
		RetryStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// NewRetryHandler creates a new retry handler
func NewRetryHandler(config RetryHandlerConfig, logger zerolog.Logger) *RetryHandler {
	statusCodeMap := make(map[int]bool)
	for _, code := range config.RetryStatusCodes {
		statusCodeMap[code] = true
	}

	return &RetryHandler{
		maxRetries:         config.MaxRetries,
		baseDelay:          config.BaseDelay,
		maxDelay:           config.MaxDelay,
		enableJitter:       config.EnableJitter,
		retryNetworkErrors: config.RetryNetworkErrors,
		retryStatusCodes:   statusCodeMap,
		logger:             logger.With().Str("component", "RetryHandler").Logger(),
	}
}

// ShouldRetry determines if a request should be retried based on status code
func (rh *RetryHandler) ShouldRetry(statusCode int, attempt int) bool {
	if attempt >= rh.maxRetries {
		return false
	}
	return rh.retryStatusCodes[statusCode]
}

// CalculateDelay calculates the delay for the next retry attempt using exponential backoff
func (rh *RetryHandler) CalculateDelay(attempt int) time.Duration {
	delay := rh.baseDelay
	if attempt > 0 {
		delay = rh.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	}

	if rh.maxDelay > 0 && delay > rh.maxDelay {
		delay = rh.maxDelay
	}

	if rh.enableJitter {
		if n := delay.Milliseconds() / 10; n > 0 {
			delay += time.Duration(rand.Int64N(n)) * time.Millisecond
		}
	}

	return delay
}

// retryAfter reads a Retry-After header given in seconds
func retryAfter(resp *HTTPResponse) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v, ok := resp.Headers["Retry-After"]
	if !ok {
		return 0, false
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func (rh *RetryHandler) wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DoWithRetry executes an HTTP request with retry logic
func (rh *RetryHandler) DoWithRetry(ctx context.Context, doFunc func(*HTTPRequest) (*HTTPResponse, error), req *HTTPRequest) (*HTTPResponse, error) {
	var lastResp *HTTPResponse
	var lastErr error

	for attempt := 0; attempt <= rh.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := doFunc(req)
		if err != nil {
			lastErr, lastResp = err, nil
			if !rh.retryNetworkErrors || attempt >= rh.maxRetries {
				break
			}
			delay := rh.CalculateDelay(attempt)
			rh.logger.Debug().Str("url", req.URL).Int("attempt", attempt+1).Dur("delay", delay).Err(err).Msg("Network error, retrying")
			if err := rh.wait(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		lastResp, lastErr = resp, nil
		if !rh.ShouldRetry(resp.StatusCode, attempt) {
			break
		}

		delay, ok := retryAfter(resp)
		if !ok {
			delay = rh.CalculateDelay(attempt)
		} else if rh.maxDelay > 0 && delay > rh.maxDelay {
			delay = rh.maxDelay
		}
		rh.logger.Warn().
			Str("url", req.URL).
			Int("status_code", resp.StatusCode).
			Int("attempt", attempt+1).
			Int("max_retries", rh.maxRetries).
			Dur("delay", delay).
			Msg("Retryable status, waiting before retry")
		if err := rh.wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}

	if lastResp != nil && rh.retryStatusCodes[lastResp.StatusCode] {
		err := NewHTTPErrorWithURL(lastResp.StatusCode, string(lastResp.Body), req.URL)
		return lastResp, WrapError(err, "all retry attempts failed")
	}

	return lastResp, nil
}
