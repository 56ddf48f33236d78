package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// TelegramConfig is the per-product configuration a Telegram notifier is
// initialized with.
type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   int64  `json:"chat_id"`
}

// TelegramNotifier sends a formatted message to a Telegram chat via the
// Bot API.
type TelegramNotifier struct {
	cfg TelegramConfig
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier() *TelegramNotifier {
	return &TelegramNotifier{}
}

func (t *TelegramNotifier) Name() string              { return "telegram" }
func (t *TelegramNotifier) Kind() models.NotifierKind { return models.NotifierKindTelegram }
func (t *TelegramNotifier) Description() string       { return "Sends a formatted message to a Telegram chat via the Bot API." }

func (t *TelegramNotifier) ValidateConfig(configJSON json.RawMessage) error {
	var cfg TelegramConfig
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return fmt.Errorf("notify: invalid telegram config: %w", err)
	}
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return fmt.Errorf("notify: telegram config requires bot_token and chat_id")
	}
	return nil
}

func (t *TelegramNotifier) ConfigSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["bot_token","chat_id"],"properties":{"bot_token":{"type":"string"},"chat_id":{"type":"integer"}}}`)
}

func (t *TelegramNotifier) Initialize(configJSON json.RawMessage) error {
	if err := t.ValidateConfig(configJSON); err != nil {
		return err
	}
	if err := json.Unmarshal(configJSON, &t.cfg); err != nil {
		return err
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("notify: telegram bot init: %w", err)
	}
	t.bot = bot
	return nil
}

func (t *TelegramNotifier) TestConnection(ctx context.Context, configJSON json.RawMessage) error {
	var cfg TelegramConfig
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return err
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	_, err = bot.GetMe()
	return err
}

func (t *TelegramNotifier) Notify(ctx context.Context, event models.NotificationEvent) models.NotifyResult {
	if t.bot == nil {
		return models.NotifyResult{Success: false, Error: "notify: telegram notifier not initialized"}
	}

	msg := tgbotapi.NewMessage(t.cfg.ChatID, t.formatMessage(event))
	msg.ParseMode = tgbotapi.ModeMarkdown

	sent, err := t.bot.Send(msg)
	if err != nil {
		return models.NotifyResult{Success: false, Error: err.Error()}
	}
	return models.NotifyResult{Success: true, MessageID: fmt.Sprintf("%d", sent.MessageID)}
}

func (t *TelegramNotifier) formatMessage(event models.NotificationEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", event.ProductName)
	if event.StoreName != "" {
		fmt.Fprintf(&b, "%s: ", event.StoreName)
	}
	fmt.Fprintf(&b, "%s → %s\n", event.OldFormatted, event.NewFormatted)
	if event.Comparison != nil {
		fmt.Fprintf(&b, "Best: %s\n", string(event.Comparison.BestValue))
		if event.Comparison.HasSavings {
			fmt.Fprintf(&b, "Savings: %.2f (%.0f%%)\n", event.Comparison.Savings, event.Comparison.SavingsPercentage)
		}
	}
	if event.Actions.ViewProduct != "" {
		fmt.Fprintf(&b, "[View product](%s)", event.Actions.ViewProduct)
	}
	return b.String()
}

func (t *TelegramNotifier) Shutdown() error { return nil }
