// Package telegram delivers alerts through the Telegram Bot API and answers bot commands.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/notify"
	"github.com/rewired-gh/voltwatch/internal/retry"
)

// CommandHandler produces the plain-text reply for a bot command.
type CommandHandler func() string

// Client sends alerts to a single chat.
type Client struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	policy  retry.Policy
	limiter *rate.Limiter
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase, timeout time.Duration) (*Client, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Client{
		bot:     bot,
		chatID:  id,
		policy:  sendPolicy(maxRetries, retryDelayBase),
		limiter: rate.NewLimiter(rate.Every(time.Second), 3), // per-chat flood limit
	}, nil
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID: %w", err)
	}
	return id, nil
}

func sendPolicy(maxRetries int, delayBase time.Duration) retry.Policy {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if delayBase <= 0 {
		delayBase = time.Second
	}
	return retry.Policy{Attempts: maxRetries, Delay: delayBase, Linear: true}
}

// Notify sends msg as plain text, escaped for MarkdownV2.
func (c *Client) Notify(ctx context.Context, msg notify.Message) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return c.send(ctx, escapeMarkdownV2(msg.Text))
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// /ping is always answered; other commands are looked up in handlers.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, handlers map[string]CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg := update.Message
				if msg == nil || !msg.IsCommand() || msg.Chat.ID != c.chatID {
					continue
				}
				c.reply(ctx, msg.Command(), commandReply(msg.Command(), handlers))
			}
		}
	}()
}

func (c *Client) reply(ctx context.Context, command, text string) {
	if text == "" {
		return
	}
	if err := c.send(ctx, escapeMarkdownV2(text)); err != nil {
		logger.Warn("Failed to answer /%s: %v", command, err)
	}
}

func commandReply(command string, handlers map[string]CommandHandler) string {
	if command == "ping" {
		return "Pong"
	}
	if h, ok := handlers[command]; ok {
		return h()
	}
	return ""
}

// send delivers a MarkdownV2 message, retrying transient failures with linear backoff.
func (c *Client) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	return c.policy.Do(ctx, func(context.Context) error {
		_, err := c.bot.Send(msg)
		return classify(err)
	})
}

// classify marks request errors the Bot API will reject again as permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
