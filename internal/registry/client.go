// Package registry talks to the shortcode registry worker.
package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/config"
	"github.com/aleister1102/imgsync/internal/httpclient"
	"github.com/aleister1102/imgsync/internal/metrics"
	"github.com/aleister1102/imgsync/internal/models"
	"github.com/rs/zerolog"
)

const serviceName = "registry"

// Client is a thin request/response wrapper over the registry API
type Client struct {
	http    *httpclient.HTTPClient
	baseURL string
	logger  zerolog.Logger
}

type lookupRequest struct {
	Shortcode string `json:"shortcode"`
}

type assignmentRequest struct {
	Shortcode string `json:"shortcode"`
	Image     string `json:"image"`
}

type response struct {
	Shortcode string `json:"shortcode"`
	Image     string `json:"image"`
	Success   *bool  `json:"success,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
}

// NewClient builds a client from the registry section. Network errors are
// not retried; only gateway and rate limit statuses are.
func NewClient(cfg config.RegistryConfig, logger zerolog.Logger) (*Client, error) {
	logger = logger.With().Str("module", "registry").Logger()
	baseURL := strings.TrimRight(cfg.WorkerURL, "/")

	retry := httpclient.DefaultRetryHandlerConfig()
	retry.RetryNetworkErrors = false

	httpClient, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(cfg.Timeout()).
		WithUserAgent(cfg.UserAgent).
		WithHeader("X-Auth-PSK", cfg.WorkerPSK).
		WithHeader("Content-Type", "application/json").
		WithHeader("Referer", baseURL).
		WithProxy(cfg.Proxy).
		WithRetry(retry).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to build registry HTTP client")
	}

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// BaseURL is the worker URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ShortcodeURL is the public URL a shortcode resolves at
func (c *Client) ShortcodeURL(shortcode string) string {
	return c.baseURL + "/" + shortcode
}

// Lookup finds the assignment for filename. It returns nil, nil when none exists.
func (c *Client) Lookup(ctx context.Context, filename string) (*models.Assignment, error) {
	resp, err := c.send(ctx, "lookup", http.MethodPost, c.baseURL, lookupRequest{Shortcode: filename})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		metrics.RecordRegistryCall("lookup", true)
		return nil, nil
	}
	if err := checkStatus("lookup", resp); err != nil {
		metrics.RecordRegistryCall("lookup", false)
		return nil, err
	}
	metrics.RecordRegistryCall("lookup", true)

	var body response
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Shortcode == "" {
		c.logger.Debug().Str("filename", filename).Msg("Lookup returned no shortcode")
		return nil, nil
	}
	if body.Success != nil && !*body.Success {
		return nil, nil
	}

	image := body.Image
	if image == "" {
		image = filename
	}
	return &models.Assignment{Shortcode: body.Shortcode, Filename: image}, nil
}

// Create registers a new assignment. A duplicate shortcode yields a conflict error.
func (c *Client) Create(ctx context.Context, a models.Assignment) error {
	return c.mutate(ctx, "create", http.MethodPost, c.baseURL, a)
}

// Update rebinds an existing shortcode to a filename
func (c *Client) Update(ctx context.Context, a models.Assignment) error {
	return c.mutate(ctx, "update", http.MethodPut, c.baseURL, a)
}

// Delete removes the assignment for shortcode
func (c *Client) Delete(ctx context.Context, shortcode string) error {
	resp, err := c.send(ctx, "delete", http.MethodDelete, c.ShortcodeURL(shortcode), nil)
	if err != nil {
		return err
	}
	err = checkStatus("delete", resp)
	metrics.RecordRegistryCall("delete", err == nil)
	return err
}

func (c *Client) mutate(ctx context.Context, op, method, url string, a models.Assignment) error {
	resp, err := c.send(ctx, op, method, url, assignmentRequest{Shortcode: a.Shortcode, Image: a.Filename})
	if err != nil {
		return err
	}
	err = checkStatus(op, resp)
	metrics.RecordRegistryCall(op, err == nil)
	return err
}

func (c *Client) send(ctx context.Context, op, method, url string, payload any) (*httpclient.HTTPResponse, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, common.WrapErrorf(err, "encoding %s request", op)
		}
	}

	resp, err := c.http.Do(&httpclient.HTTPRequest{
		Method:  method,
		URL:     url,
		Body:    body,
		Context: ctx,
	})
	if err != nil && resp == nil {
		metrics.RecordRegistryCall(op, false)
		return nil, common.NewConnectivityError(op, c.baseURL, 1, err)
	}

	c.logger.Debug().Str("op", op).Str("method", method).Int("status", resp.StatusCode).Msg("Registry responded")
	return resp, nil
}

// checkStatus treats 2xx as success unless the payload says success=false
func checkStatus(op string, resp *httpclient.HTTPResponse) error {
	var body response
	_ = json.Unmarshal(resp.Body, &body)

	if !resp.IsSuccess() {
		return common.NewRemoteServiceError(serviceName, op, resp.StatusCode, failureMessage(resp, body))
	}
	if body.Success != nil && !*body.Success {
		return common.NewRemoteServiceError(serviceName, op, resp.StatusCode, failureMessage(resp, body))
	}
	return nil
}

func failureMessage(resp *httpclient.HTTPResponse, body response) string {
	switch {
	case body.Error != "":
		return body.Error
	case body.Message != "":
		return body.Message
	case len(resp.Body) > 0:
		msg := string(resp.Body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return msg
	default:
		return http.StatusText(resp.StatusCode)
	}
}
