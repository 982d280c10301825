package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calderahq/storefront-backend/pkg/config"
	"github.com/calderahq/storefront-backend/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	errAPIKeyRequired = errors.New("sendgrid api key is required")
	errFromRequired   = errors.New("mail from address is required")
)

// Client wraps the SendGrid delivery API. Every send runs under a bounded
// timeout; a hung upstream is reported as a delivery failure, not held open.
type Client struct {
	sender      *sendgrid.Client
	apiKey      string
	from        *mail.Email
	sendTimeout time.Duration
}

// Pinger exposes the connectivity self-check surface used by readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New initializes the mail client once with the configured credentials.
func New(ctx context.Context, cfg config.MailConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.SendgridAPIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	from := strings.TrimSpace(cfg.FromEmail)
	if from == "" {
		return nil, errFromRequired
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	if logg != nil {
		logg.Info(ctx, "mail client initialized")
	}

	return &Client{
		sender:      sendgrid.NewSendClient(apiKey),
		apiKey:      apiKey,
		from:        mail.NewEmail(cfg.FromName, from),
		sendTimeout: timeout,
	}, nil
}

// Send delivers a plain-text message to the address. It returns an error for
// any non-2xx upstream response so callers can run their compensation path.
func (c *Client) Send(ctx context.Context, toAddress, subject, body string) error {
	if strings.TrimSpace(toAddress) == "" {
		return fmt.Errorf("recipient address is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	message := mail.NewSingleEmailPlainText(c.from, subject, mail.NewEmail("", toAddress), body)
	resp, err := c.sender.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send mail: upstream status %d", resp.StatusCode)
	}
	return nil
}

// Ping verifies API credentials are accepted upstream. Operational tooling
// only; never called on the request path.
func (c *Client) Ping(ctx context.Context) error {
	request := sendgrid.GetRequest(c.apiKey, "/v3/scopes", "https://api.sendgrid.com")
	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("ping mail provider: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ping mail provider: upstream status %d", resp.StatusCode)
	}
	return nil
}
