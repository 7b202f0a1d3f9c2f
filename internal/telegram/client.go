// Package telegram provides the Telegram bot surface: alert management commands and push notifications.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/gridpulse/internal/logger"
	"github.com/rewired-gh/gridpulse/internal/models"
	"github.com/rewired-gh/gridpulse/internal/notification"
)

// Client handles Telegram notifications and commands.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	commands       *Commands
}

// NewClient creates a new Telegram client. commands may be nil, in which case
// incoming commands are ignored.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration, commands *Commands) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		commands:       commands,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
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
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(ctx, update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if c.commands == nil {
		return
	}
	if msg.Chat.ID != c.chatID {
		logger.Warn("Ignoring command from unknown chat %d", msg.Chat.ID)
		return
	}

	logger.Debug("Handling command /%s", msg.Command())
	text := c.commands.Handle(ctx, msg.Command(), msg.CommandArguments())
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := c.bot.Send(reply); err != nil {
		logger.Warn("Failed to reply to /%s: %v", msg.Command(), err)
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a market session error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Market session error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Market session recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendAlerts pushes newly triggered alerts.
func (c *Client) SendAlerts(alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return c.sendMarkdownV2(formatAlerts(alerts))
}

// formatAlerts formats triggered alerts into a Telegram MarkdownV2 message.
func formatAlerts(alerts []models.Alert) string {
	var b strings.Builder
	b.WriteString("🚨 *Market Alert\\!*\n\n")

	if !alerts[0].TriggeredAt.IsZero() {
		dateStr := escapeMarkdownV2(alerts[0].TriggeredAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "📅 Triggered: %s\n\n", dateStr)
	}

	for _, a := range alerts {
		directionEmoji := "📈"
		if a.Condition == models.Below {
			directionEmoji = "📉"
		}
		fmt.Fprintf(&b, "%s \\#%d %s\n", directionEmoji, a.ID, escapeMarkdownV2(notification.Message(a)))
	}

	b.WriteString("\nDismiss with /dismiss " + escapeMarkdownV2("<id>"))
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
