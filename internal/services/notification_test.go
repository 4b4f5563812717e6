package services

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/etfflow-go/internal/config"
)

type MockTelegramSender struct {
	mock.Mock
}

func (m *MockTelegramSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgmodels.Message), args.Error(1)
}

func sampleAlert() Alert {
	return Alert{
		ID:       "alert-1",
		Type:     AlertLargeOutflow,
		Level:    LevelDanger,
		Priority: "high",
		Title:    "Large Outflow",
		Message:  "Significant outflow of $300.00M",
		Date:     testEnd,
	}
}

func TestTelegramNotifier_Notify(t *testing.T) {
	sender := new(MockTelegramSender)
	sender.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.ChatID == int64(42) &&
			p.ParseMode == tgmodels.ParseModeMarkdown &&
			p.Text == "🔴 *Large Outflow*\nSignificant outflow of $300.00M\n📅 2024-06-28 · priority High"
	})).Return(&tgmodels.Message{ID: 1}, nil).Once()

	err := NewTelegramNotifier(sender, 42).Notify(context.Background(), sampleAlert())
	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestTelegramNotifier_NotifyError(t *testing.T) {
	sender := new(MockTelegramSender)
	sender.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("chat not found"))

	err := NewTelegramNotifier(sender, 42).Notify(context.Background(), sampleAlert())
	assert.ErrorContains(t, err, "failed to send telegram message")
	assert.ErrorContains(t, err, "chat not found")
}

func TestNewNotifier_FallsBackToLog(t *testing.T) {
	logger, _ := test.NewNullLogger()

	assert.IsType(t, LogNotifier{}, NewNotifier(config.TelegramConfig{}, logger))
	assert.IsType(t, LogNotifier{}, NewNotifier(config.TelegramConfig{BotToken: "token"}, logger))
	assert.IsType(t, LogNotifier{}, NewNotifier(config.TelegramConfig{ChatID: 42}, logger))
}

func TestLogNotifier_Notify(t *testing.T) {
	logger, hook := test.NewNullLogger()

	require.NoError(t, LogNotifier{Logger: logger}.Notify(context.Background(), sampleAlert()))
	require.Len(t, hook.AllEntries(), 1)

	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Large Outflow: Significant outflow of $300.00M", entry.Message)
	assert.Equal(t, "alert-1", entry.Data["alert_id"])
	assert.Equal(t, "2024-06-28", entry.Data["date"])
}

func TestFormatAlertMessage_Icons(t *testing.T) {
	tests := []struct {
		level AlertLevel
		icon  string
	}{
		{LevelSuccess, "🟢"},
		{LevelDanger, "🔴"},
		{LevelWarning, "⚠️"},
		{LevelInfo, "ℹ️"},
	}
	for _, tt := range tests {
		a := sampleAlert()
		a.Level = tt.level
		assert.Contains(t, formatAlertMessage(a), tt.icon+" *Large Outflow*")
	}
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, NoopNotifier{}.Notify(context.Background(), sampleAlert()))
}
