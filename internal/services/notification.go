package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/models"
)

// Notifier delivers an alert to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// NoopNotifier drops every alert.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Alert) error { return nil }

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) Notify(_ context.Context, alert Alert) error {
	n.Logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"type":     alert.Type,
		"level":    alert.Level,
		"date":     models.DateKey(alert.Date),
	}).Info(alert.Title + ": " + alert.Message)
	return nil
}

// TelegramSender is the subset of *bot.Bot the notifier needs.
type TelegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramNotifier posts alerts to a Telegram chat in Markdown.
type TelegramNotifier struct {
	sender TelegramSender
	chatID int64
}

// NewTelegramNotifier wraps a sender for chatID.
func NewTelegramNotifier(sender TelegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID}
}

// NewNotifier builds the Telegram notifier when a token and chat are
// configured, and a log notifier otherwise.
func NewNotifier(cfg config.TelegramConfig, logger logrus.FieldLogger) Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return LogNotifier{Logger: logger}
	}

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Warn("Failed to create Telegram bot, alerts will only be logged")
		return LogNotifier{Logger: logger}
	}
	return NewTelegramNotifier(b, cfg.ChatID)
}

func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      formatAlertMessage(alert),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func formatAlertMessage(alert Alert) string {
	icon := "ℹ️"
	switch alert.Level {
	case LevelSuccess:
		icon = "🟢"
	case LevelDanger:
		icon = "🔴"
	case LevelWarning:
		icon = "⚠️"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *%s*\n", icon, alert.Title)
	fmt.Fprintf(&sb, "%s\n", alert.Message)
	fmt.Fprintf(&sb, "📅 %s · priority %s", models.DateKey(alert.Date), title(alert.Priority))
	return sb.String()
}
