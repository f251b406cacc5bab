package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"property-manager/internal/common"
	"property-manager/internal/config"
)

// HTTPSender posts messages to a Twilio-style REST endpoint
type HTTPSender struct {
	url        string
	accountID  string
	authToken  string
	from       string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSender creates a sender for the configured provider
func NewHTTPSender(cfg config.SMSConfig, logger *zap.Logger) *HTTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSender{
		url:       cfg.URL,
		accountID: cfg.AccountID,
		authToken: cfg.AuthToken,
		from:      cfg.From,
		httpClient: &http.Client{
			Timeout: config.Duration(cfg.Timeout),
		},
		logger: logger,
	}
}

type providerResponse struct {
	SID     string `json:"sid"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send posts To, From and Body as a form and returns the provider message id.
// A 2xx response without an id counts as sent with an empty id.
func (s *HTTPSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ValidateMessage(to, body); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if s.accountID != "" {
		req.SetBasicAuth(s.accountID, s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", common.NewErrorWithCause(common.ErrUnavailable, "sms provider unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read sms response: %w", err)
	}

	var pr providerResponse
	_ = json.Unmarshal(data, &pr)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := pr.Message
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return "", common.NewError(common.ErrUnavailable, fmt.Sprintf("sms provider returned %d: %s", resp.StatusCode, msg))
	}

	if pr.SID != "" {
		return pr.SID, nil
	}
	if pr.ID != "" {
		return pr.ID, nil
	}
	// a 2xx without an id still means the provider took the message
	s.logger.Warn("sms provider accepted message without an id",
		zap.Int("status", resp.StatusCode),
		zap.String("to", to))
	return "", nil
}
