package connectors

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 5 * time.Second

	// discordContentLimit is the webhook message size cap.
	discordContentLimit = 2000
)

// DiscordNotifier posts alerts to a webhook. With no URL configured every
// send is a logged no-op.
type DiscordNotifier struct {
	webhookURL string
	http       *resty.Client
	limiter    *rate.Limiter
	log        *logger.Entry
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewDiscordNotifier(cfg Config, log *logger.Entry) *DiscordNotifier {
	httpClient := resty.New().
		SetTimeout(cfg.DiscordTimeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	perMinute := cfg.DiscordPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}

	n := &DiscordNotifier{
		webhookURL: cfg.DiscordWebhookURL,
		http:       httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		log:        log.WithField("component", "discord"),
	}
	if n.webhookURL == "" {
		n.log.Warn("DISCORD_WEBHOOK_URL not set, notifications are disabled")
	}
	return n
}

func (n *DiscordNotifier) Enabled() bool { return n.webhookURL != "" }

// Text posts content, split into webhook-sized chunks.
func (n *DiscordNotifier) Text(ctx context.Context, content string) error {
	if !n.Enabled() {
		n.log.WithField("content", content).Debug("Discord disabled, message dropped")
		return nil
	}
	for _, chunk := range splitContent(content, discordContentLimit) {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("discord rate limit: %w", err)
		}
		resp, err := n.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"content": chunk}).
			Post(n.webhookURL)
		if err := checkResponse(resp, err); err != nil {
			return err
		}
	}
	return nil
}

// File uploads data as an attachment with an optional caption.
func (n *DiscordNotifier) File(ctx context.Context, filename string, data []byte, caption string) error {
	if !n.Enabled() {
		n.log.WithField("file", filename).Debug("Discord disabled, file dropped")
		return nil
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord rate limit: %w", err)
	}
	req := n.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data))
	if caption != "" {
		req.SetFormData(map[string]string{"content": truncate(caption, discordContentLimit)})
	}
	resp, err := req.Post(n.webhookURL)
	return checkResponse(resp, err)
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("discord webhook: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// splitContent breaks s on line boundaries so each part fits limit runes.
func splitContent(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
