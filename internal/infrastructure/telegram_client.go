package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"project_newsbot/internal/entities"
)

// CallbackPrefix marks inline keyboard data that should be routed as a command
const CallbackPrefix = "cmd:"

// TelegramClient polls the Bot API and replies with the category keyboard attached
type TelegramClient struct {
	Bot      *tgbotapi.BotAPI
	sessions *SessionManager
	logger   *zap.Logger

	// MessageHandler receives every text message and keyboard click as a Message
	MessageHandler func(ctx context.Context, msg entities.Message) error
}

func NewTelegramClient(token string, sessions *SessionManager, logger *zap.Logger) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	if sessions == nil {
		sessions = NewSessionManager(2 * time.Second)
	}
	return &TelegramClient{
		Bot:      bot,
		sessions: sessions,
		logger:   logger.Named("telegram").With(zap.String("bot", bot.Self.UserName)),
	}, nil
}

// Start runs the update loop until ctx is cancelled
func (t *TelegramClient) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.Bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			t.Bot.StopReceivingUpdates()
			t.logger.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go t.handleUpdate(ctx, update)
		}
	}
}

func (t *TelegramClient) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if t.MessageHandler == nil {
		return
	}

	if update.Message != nil {
		msg := entities.Message{
			ID:       strconv.Itoa(update.Message.MessageID),
			From:     strconv.FormatInt(update.Message.Chat.ID, 10),
			Content:  update.Message.Text,
			Platform: entities.ChannelTelegram,
		}
		if err := t.MessageHandler(ctx, msg); err != nil {
			t.logger.Warn("telegram message not answered", zap.String("chat", msg.From), zap.Error(err))
		}
		return
	}

	cb := update.CallbackQuery
	if cb == nil || cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	if !t.sessions.TryAcquire(chatID) {
		t.Bot.Request(tgbotapi.NewCallback(cb.ID, "Please wait..."))
		return
	}
	defer t.sessions.Release(chatID)

	t.Bot.Request(tgbotapi.NewCallback(cb.ID, ""))

	if !strings.HasPrefix(cb.Data, CallbackPrefix) {
		t.logger.Debug("ignoring callback", zap.String("data", cb.Data))
		return
	}
	msg := entities.Message{
		ID:       cb.ID,
		From:     strconv.FormatInt(chatID, 10),
		Content:  strings.TrimPrefix(cb.Data, CallbackPrefix),
		Platform: entities.ChannelTelegram,
	}
	if err := t.MessageHandler(ctx, msg); err != nil {
		t.logger.Warn("telegram callback not answered", zap.String("chat", msg.From), zap.Error(err))
	}
}

// SendMessage sends content with Markdown formatting and the category keyboard.
// Headlines can contain characters the legacy Markdown parser rejects, so a
// failed Markdown send is repeated as plain text.
func (t *TelegramClient) SendMessage(to, content string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}

	msg := tgbotapi.NewMessage(chatID, content)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = CategoryKeyboard()
	if _, err := t.Bot.Send(msg); err == nil {
		return nil
	}

	msg.ParseMode = ""
	_, err = t.Bot.Send(msg)
	return err
}
