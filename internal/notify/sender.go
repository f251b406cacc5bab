// Package notify delivers tenant notices by SMS.
package notify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"property-manager/internal/common"
	"property-manager/internal/config"
)

// MaxBodyLength is the longest message accepted, in characters
const MaxBodyLength = 1600

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// Sender delivers one text message and returns the provider's message id
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// New returns the HTTP sender when SMS is enabled and a log-only sender otherwise
func New(cfg config.SMSConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled {
		return NewLogSender(logger)
	}
	return NewHTTPSender(cfg, logger)
}

// ValidateMessage checks the recipient number and body length
func ValidateMessage(to, body string) error {
	if !e164.MatchString(to) {
		return common.ErrInvalidInputf("recipient %q is not an E.164 phone number", to)
	}
	return CheckBody(body)
}

// CheckBody checks that a message body is non-blank and within MaxBodyLength
func CheckBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return common.ErrInvalidInputError("message body is empty")
	}
	if n := utf8.RuneCountInString(body); n > MaxBodyLength {
		return common.ErrInvalidInputf("message body is %d characters, limit is %d", n, MaxBodyLength)
	}
	return nil
}

// NormalizePhone strips spaces, dashes, dots and parentheses from a number
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, phone)
}

// LogSender writes messages to the log instead of sending them
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ValidateMessage(to, body); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("log-%s", common.GenerateID())
	s.logger.Info("SMS not sent, delivery disabled",
		zap.String("to", to),
		zap.Int("length", utf8.RuneCountInString(body)),
		zap.String("ref", ref))
	return ref, nil
}
