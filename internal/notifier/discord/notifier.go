package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/config"
	"github.com/aleister1102/imgsync/internal/httpclient"
	"github.com/aleister1102/imgsync/internal/metrics"
	"github.com/aleister1102/imgsync/internal/notifier"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const backendName = "discord"

// WebhookNotifier posts one embed per shortcode to a Discord webhook and
// keeps the returned message id so the embed can be edited or deleted.
type WebhookNotifier struct {
	cfg        config.DiscordConfig
	webhook    *url.URL
	color      int
	http       *httpclient.HTTPClient
	limiter    *rate.Limiter
	handles    *notifier.HandleStore
	logger     zerolog.Logger
	now        func() time.Time
}

// NewWebhookNotifier builds the backend. handles holds the message ids.
func NewWebhookNotifier(cfg config.DiscordConfig, handles *notifier.HandleStore, logger zerolog.Logger) (*WebhookNotifier, error) {
	if !cfg.Enabled() {
		return nil, common.NewConfigurationError("discord", "webhook", "webhook URL is required")
	}
	if handles == nil {
		return nil, common.NewError("discord notifier requires a handle store")
	}
	logger = logger.With().Str("module", "discord").Logger()

	webhook, err := url.Parse(cfg.Webhook)
	if err != nil || webhook.Host == "" {
		return nil, common.NewConfigurationError("discord", "webhook", "webhook must be an absolute URL")
	}
	webhook.Path = strings.TrimRight(webhook.Path, "/")
	webhook.RawPath = ""

	color, err := ParseColor(cfg.EmbedColor)
	if err != nil {
		return nil, common.NewConfigurationError("discord", "embed_color", err.Error())
	}

	retry := httpclient.DefaultRetryHandlerConfig()
	retry.MaxRetries = cfg.MaxRetries
	retry.RetryNetworkErrors = false

	httpClient, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(cfg.Timeout()).
		WithHeader("Content-Type", "application/json").
		WithFollowRedirects(false).
		WithProxy(cfg.Proxy).
		WithRetry(retry).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to build discord HTTP client")
	}

	return &WebhookNotifier{
		cfg:        cfg,
		webhook:    webhook,
		color:      color,
		http:       httpClient,
		limiter:    newLimiter(cfg.RateLimit, cfg.RatePeriod()),
		handles:    handles,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// newLimiter allows limit requests per period. Zero disables limiting.
func newLimiter(limit int, period time.Duration) *rate.Limiter {
	if limit <= 0 || period <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(period/time.Duration(limit)), limit)
}

func (w *WebhookNotifier) Name() string {
	return backendName
}

// Notify posts a new embed and records its message id
func (w *WebhookNotifier) Notify(ctx context.Context, msg notifier.Message) (string, error) {
	payload, err := w.payload(msg)
	if err != nil {
		return "", err
	}

	resp, err := w.send(ctx, "notify", http.MethodPost, w.postURL(), payload)
	if err != nil {
		return "", err
	}

	var created webhookMessage
	if err := json.Unmarshal(resp.Body, &created); err != nil || created.ID == "" {
		metrics.RecordNotification(backendName, "notify", false)
		return "", common.NewRemoteServiceError(backendName, "notify", resp.StatusCode, "response carried no message id")
	}
	metrics.RecordNotification(backendName, "notify", true)

	if err := w.handles.Put(msg.Shortcode, created.ID); err != nil {
		return created.ID, err
	}
	w.logger.Info().Str("shortcode", msg.Shortcode).Str("message_id", created.ID).Msg("Discord message posted")
	return created.ID, nil
}

// Edit replaces the embed posted for msg.Shortcode
func (w *WebhookNotifier) Edit(ctx context.Context, msg notifier.Message) error {
	id, ok := w.handles.Get(msg.Shortcode)
	if !ok {
		w.logger.Debug().Str("shortcode", msg.Shortcode).Msg("No Discord message to edit")
		return nil
	}

	payload, err := w.payload(msg)
	if err != nil {
		return err
	}

	if _, err := w.send(ctx, "edit", http.MethodPatch, w.messageURL(id), payload); err != nil {
		return err
	}
	metrics.RecordNotification(backendName, "edit", true)
	w.logger.Info().Str("shortcode", msg.Shortcode).Str("message_id", id).Msg("Discord message edited")
	return nil
}

// Delete removes the message posted for shortcode. The id is forgotten only
// once Discord confirms the deletion.
func (w *WebhookNotifier) Delete(ctx context.Context, shortcode string) error {
	id, ok := w.handles.Get(shortcode)
	if !ok {
		w.logger.Debug().Str("shortcode", shortcode).Msg("No Discord message to delete")
		return nil
	}

	if _, err := w.send(ctx, "delete", http.MethodDelete, w.messageURL(id), nil); err != nil {
		return err
	}
	metrics.RecordNotification(backendName, "delete", true)

	if err := w.handles.Remove(shortcode); err != nil {
		return err
	}
	w.logger.Info().Str("shortcode", shortcode).Str("message_id", id).Msg("Discord message deleted")
	return nil
}

// postURL asks Discord to return the created message, keeping any
// query the webhook already carries (thread_id)
func (w *WebhookNotifier) postURL() string {
	u := *w.webhook
	q := u.Query()
	q.Set("wait", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

func (w *WebhookNotifier) messageURL(id string) string {
	return w.webhook.JoinPath("messages", id).String()
}

func (w *WebhookNotifier) payload(msg notifier.Message) (WebhookPayload, error) {
	description := msg.Description
	if description == "" {
		description = notifier.Description(msg.Shortcode, msg.URL, msg.Filename)
	}

	embed, err := NewEmbedBuilder().
		WithTitle(w.cfg.EmbedTitle).
		WithDescription(description).
		WithURL(msg.URL).
		WithColor(w.color).
		WithAuthor(w.cfg.Author, "", w.cfg.AuthorIcon).
		WithImage(msg.URL).
		WithThumbnail(msg.URL).
		WithTimestamp(w.now()).
		AddField("Shortcode", msg.Shortcode, true).
		AddField("Image", msg.Filename, true).
		Build()
	if err != nil {
		return WebhookPayload{}, common.WrapError(err, "building discord embed")
	}

	return NewPayloadBuilder().
		WithUsername(w.cfg.Username).
		AddEmbed(embed).
		Build(), nil
}

// send waits for the rate limiter and performs one request. Non-2xx answers
// left after the retry policy become RemoteServiceError.
func (w *WebhookNotifier) send(ctx context.Context, op, method, url string, payload any) (*httpclient.HTTPResponse, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, common.WrapErrorf(err, "discord %s rate limit wait", op)
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, common.WrapErrorf(err, "encoding discord %s payload", op)
		}
	}

	resp, err := w.http.Do(&httpclient.HTTPRequest{
		Method:  method,
		URL:     url,
		Body:    body,
		Context: ctx,
	})
	if resp == nil {
		metrics.RecordNotification(backendName, op, false)
		if err == nil {
			err = common.NewError("empty response")
		}
		return nil, common.NewConnectivityError(op, backendName, 1, err)
	}
	if !resp.IsSuccess() {
		metrics.RecordNotification(backendName, op, false)
		return nil, common.NewRemoteServiceError(backendName, op, resp.StatusCode, errorMessage(resp))
	}
	return resp, nil
}

func errorMessage(resp *httpclient.HTTPResponse) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if len(resp.Body) > 0 {
		msg := string(resp.Body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
