package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zgpcy/cost-report/internal/config"
	"github.com/zgpcy/cost-report/internal/logger"
)

const (
	messagesPath   = "/api/v1/messages"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4096
)

// Zulip posts messages through the Zulip REST API
type Zulip struct {
	cfg        config.Notify
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
}

// Verify that Zulip implements Notifier
var _ Notifier = (*Zulip)(nil)

// ZulipOption is a functional option for the Zulip notifier
type ZulipOption func(*Zulip)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) ZulipOption {
	return func(z *Zulip) {
		z.httpClient = c
	}
}

// WithLogger sets the logger used for delivery events
func WithLogger(log *logger.Logger) ZulipOption {
	return func(z *Zulip) {
		z.logger = log
	}
}

// zulipResponse is the envelope every Zulip endpoint returns
type zulipResponse struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
	Code   string `json:"code"`
	ID     int64  `json:"id"`
}

// NewZulip validates the delivery settings and creates the notifier
func NewZulip(cfg config.Notify, opts ...ZulipOption) (*Zulip, error) {
	if err := cfg.ValidateDelivery(); err != nil {
		return nil, err
	}

	site, err := url.Parse(strings.TrimRight(cfg.Site, "/"))
	if err != nil || site.Scheme == "" || site.Host == "" {
		return nil, &config.ConfigError{
			Field: "notify.site",
			Cause: fmt.Errorf("invalid site URL %q", cfg.Site),
		}
	}

	z := &Zulip{
		cfg:        cfg,
		endpoint:   site.String() + messagesPath,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(z)
	}

	return z, nil
}

// destination names the recipient for logs and errors
func (z *Zulip) destination() string {
	if z.cfg.DestinationType == config.DestinationStream {
		return fmt.Sprintf("stream %s > %s", z.cfg.Destination, z.cfg.Topic)
	}
	return fmt.Sprintf("%s %s", z.cfg.DestinationType, z.cfg.Destination)
}

// form builds the urlencoded send-message parameters
func (z *Zulip) form(message string) (url.Values, error) {
	to, err := json.Marshal([]string{z.cfg.Destination})
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("type", z.cfg.DestinationType)
	form.Set("to", string(to))
	if z.cfg.Topic != "" {
		form.Set("topic", z.cfg.Topic)
	}
	form.Set("content", message)
	return form, nil
}

// Deliver sends the message once. Any failure is returned as DeliveryError.
func (z *Zulip) Deliver(ctx context.Context, message string) error {
	dest := z.destination()

	form, err := z.form(message)
	if err != nil {
		return &DeliveryError{Destination: dest, Cause: fmt.Errorf("failed to encode recipient: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &DeliveryError{Destination: dest, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(z.cfg.Email, z.cfg.APIKey)

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Destination: dest, Cause: fmt.Errorf("failed to send message: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &DeliveryError{Destination: dest, StatusCode: resp.StatusCode, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	var result zulipResponse
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := strings.TrimSpace(string(body))
		if decodeErr == nil && result.Msg != "" {
			reason = result.Msg
		}
		return &DeliveryError{Destination: dest, StatusCode: resp.StatusCode, Cause: fmt.Errorf("zulip API error: %s", reason)}
	}
	if decodeErr == nil && result.Result == "error" {
		return &DeliveryError{Destination: dest, StatusCode: resp.StatusCode, Cause: errors.New(result.Msg)}
	}

	z.logger.Info("Zulip message sent",
		"destination", dest,
		"message_id", result.ID)

	return nil
}
