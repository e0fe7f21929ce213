package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/hfpolymers/rubber-ops/internal/mailer"
	"github.com/rs/zerolog"
)

// Channel delivers a stored notification outside the dashboard.
// To add a new channel, implement this interface and register it in NewChannels.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n *Notification) error
}

// EmailLookup resolves the addresses a notification should be mailed to.
type EmailLookup func(ctx context.Context, n *Notification) ([]string, error)

// ChannelConfig carries what the optional channels need.
type ChannelConfig struct {
	WebhookURL   string
	WebhookToken string
	Mailer       mailer.Mailer
	Emails       EmailLookup
}

// NewChannels builds the channels named in names. Unknown names, and channels
// missing their configuration, fall back to the log channel.
func NewChannels(names []string, cfg ChannelConfig, log zerolog.Logger) []Channel {
	var out []Channel
	seen := map[string]bool{}
	add := func(c Channel) {
		if !seen[c.Name()] {
			seen[c.Name()] = true
			out = append(out, c)
		}
	}
	for _, name := range names {
		switch name {
		case "webhook":
			if cfg.WebhookURL != "" {
				add(&webhookChannel{url: cfg.WebhookURL, token: cfg.WebhookToken, client: &http.Client{Timeout: 5 * time.Second}})
				continue
			}
		case "email":
			if cfg.Mailer != nil && cfg.Emails != nil {
				add(&emailChannel{mail: cfg.Mailer, emails: cfg.Emails})
				continue
			}
		}
		add(logChannel{log: log})
	}
	return out
}

// ── Log ───────────────────────────────────────────────────────────────────────

type logChannel struct{ log zerolog.Logger }

func (logChannel) Name() string { return "log" }

func (c logChannel) Deliver(_ context.Context, n *Notification) error {
	c.log.Info().
		Str("notification_id", n.ID.String()).
		Str("recipient_role", string(n.RecipientRole)).
		Str("type", string(n.Type)).
		Str("title", n.Title).
		Msg("notification published")
	return nil
}

// ── Webhook ───────────────────────────────────────────────────────────────────

type webhookChannel struct {
	url    string
	token  string
	client *http.Client
}

func (*webhookChannel) Name() string { return "webhook" }

func (c *webhookChannel) Deliver(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected notification (%d)", resp.StatusCode)
	}
	return nil
}

// ── Email ─────────────────────────────────────────────────────────────────────

type emailChannel struct {
	mail   mailer.Mailer
	emails EmailLookup
}

func (*emailChannel) Name() string { return "email" }

func (c *emailChannel) Deliver(ctx context.Context, n *Notification) error {
	to, err := c.emails(ctx, n)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("<p>%s</p>", html.EscapeString(n.Message))
	for _, addr := range to {
		if err := c.mail.Send(ctx, addr, n.Title, body); err != nil {
			return err
		}
	}
	return nil
}
