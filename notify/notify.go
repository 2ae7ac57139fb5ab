// Package notify delivers email notifications.
package notify

import (
	"context"
	"strings"

	"schoolRecords/logger"
)

// Notifier sends one message to a list of addresses and reports whether it
// was delivered.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string) bool
}

// ConsoleNotifier simulates delivery by logging the message.
type ConsoleNotifier struct {
	logger *logger.Logger
}

func NewConsoleNotifier(log *logger.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: log.Named("email")}
}

func (n *ConsoleNotifier) Send(_ context.Context, recipients []string, subject, body string) bool {
	to := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	if len(to) == 0 {
		n.logger.Warnf("email %q not sent: no recipients", subject)
		return false
	}

	n.logger.Infof("to: %s | subject: %s | %s", strings.Join(to, ", "), subject, body)
	return true
}
