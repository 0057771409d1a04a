// Package notify defines the outgoing message payload and the notifier contract.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/voltwatch/internal/logger"
)

// Message is a plain text payload. Required marks alerts the user expects to receive;
// informational messages are best-effort either way.
type Message struct {
	Text     string
	Required bool
}

// Notifier delivers messages to a chat or log sink.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// DefaultSendTimeout bounds a detached send.
const DefaultSendTimeout = 30 * time.Second

// Send delivers msg on a context detached from ctx's cancellation, bounded by timeout.
// Shutdown must not cut an in-flight send short; values carried by ctx are kept.
func Send(ctx context.Context, n Notifier, msg Message, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return n.Notify(sendCtx, msg)
}

// Log writes messages to the application log. Used when no chat transport is configured.
type Log struct{}

func (Log) Notify(_ context.Context, msg Message) error {
	if msg.Required {
		logger.Info("Alert:\n%s", msg.Text)
	} else {
		logger.Debug("Notice:\n%s", msg.Text)
	}
	return nil
}

// ErrorNotice reports the first failure of a consecutive failure sequence.
func ErrorNotice(source string, err error) Message {
	return Message{Text: fmt.Sprintf("⚠️ Monitoring error (%s)\n%v", source, err)}
}

// RecoveryNotice reports the first success after failures.
func RecoveryNotice(source string, failures int) Message {
	return Message{Text: fmt.Sprintf("✅ Monitoring recovered (%s) after %d consecutive failure(s)", source, failures)}
}
