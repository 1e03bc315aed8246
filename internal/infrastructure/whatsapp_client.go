package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"project_newsbot/internal/entities"
)

// WhatsAppClient links the bot to a WhatsApp account as a companion device
type WhatsAppClient struct {
	Client *whatsmeow.Client
	logger *zap.Logger

	// MessageHandler receives private text messages
	MessageHandler func(ctx context.Context, msg entities.Message) error

	qrCode string
	qrLock sync.RWMutex
}

// NewWhatsAppClient opens (or creates) the device store at dbPath
func NewWhatsAppClient(ctx context.Context, dbPath string, logger *zap.Logger) (*WhatsAppClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create whatsapp store dir: %w", err)
	}

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", NewWhatsAppLogger(logger, "wa-db"))
	if err != nil {
		return nil, fmt.Errorf("open whatsapp store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get whatsapp device: %w", err)
	}

	w := &WhatsAppClient{
		Client: whatsmeow.NewClient(deviceStore, NewWhatsAppLogger(logger, "wa-client")),
		logger: logger.Named("whatsapp"),
	}
	w.Client.AddEventHandler(w.handleEvent)
	return w, nil
}

// Connect starts the session. A device without stored credentials gets a
// pairing QR code, available through GetQR until it is scanned.
func (w *WhatsAppClient) Connect(ctx context.Context) error {
	if w.Client.Store.ID != nil {
		if err := w.Client.Connect(); err != nil {
			return fmt.Errorf("connect whatsapp: %w", err)
		}
		w.logger.Info("whatsapp connected with existing session")
		return nil
	}
	return w.pair(ctx)
}

func (w *WhatsAppClient) pair(ctx context.Context) error {
	qrChan, err := w.Client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp qr channel: %w", err)
	}
	if err := w.Client.Connect(); err != nil {
		return fmt.Errorf("connect whatsapp: %w", err)
	}

	go func() {
		for evt := range qrChan {
			if evt.Event == "code" {
				w.setQR(evt.Code)
				w.logger.Info("whatsapp pairing code available")
				continue
			}
			w.setQR("")
			w.logger.Info("whatsapp login event", zap.String("event", evt.Event))
		}
	}()
	return nil
}

func (w *WhatsAppClient) setQR(code string) {
	w.qrLock.Lock()
	w.qrCode = code
	w.qrLock.Unlock()
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

// IsConnected returns true if client is connected and logged in
func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

// GetUserInfo returns connected user's phone number and push name
func (w *WhatsAppClient) GetUserInfo() (string, string) {
	if w.Client.Store.ID == nil {
		return "", ""
	}
	return w.Client.Store.ID.User, w.Client.Store.PushName
}

// Logout unlinks the device and starts a fresh pairing
func (w *WhatsAppClient) Logout(ctx context.Context) error {
	w.setQR("")
	if err := w.Client.Logout(ctx); err != nil {
		return fmt.Errorf("whatsapp logout: %w", err)
	}
	w.Client.Disconnect()
	// the QR channel must outlive the caller, typically an HTTP request
	return w.pair(context.WithoutCancel(ctx))
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

// SendMessage accepts a full JID or a bare phone number
func (w *WhatsAppClient) SendMessage(to string, content string) error {
	if !strings.Contains(to, "@") {
		to += "@" + types.DefaultUserServer
	}
	jid, err := types.ParseJID(to)
	if err != nil {
		return fmt.Errorf("invalid whatsapp recipient %q: %w", to, err)
	}

	_, err = w.Client.SendMessage(context.Background(), jid, &waProto.Message{
		Conversation: &content,
	})
	return err
}

func (w *WhatsAppClient) handleEvent(evt interface{}) {
	v, ok := evt.(*events.Message)
	if !ok || w.MessageHandler == nil {
		return
	}
	if v.Info.IsGroup || v.Info.IsFromMe {
		return
	}

	chat, content := ParseMessage(v)
	if content == "" {
		return
	}

	w.Client.SendChatPresence(context.Background(), v.Info.Chat, types.ChatPresenceComposing, types.ChatPresenceMediaText)

	msg := entities.Message{
		ID:       string(v.Info.ID),
		From:     chat,
		Content:  content,
		Platform: entities.ChannelWhatsApp,
	}
	go func() {
		if err := w.MessageHandler(context.Background(), msg); err != nil {
			w.logger.Warn("whatsapp message not answered", zap.String("chat", chat), zap.Error(err))
		}
	}()
}

// ParseMessage extracts the reply address and text of an inbound message
func ParseMessage(evt *events.Message) (string, string) {
	var content string
	if evt.Message.GetConversation() != "" {
		content = evt.Message.GetConversation()
	} else if ext := evt.Message.GetExtendedTextMessage(); ext != nil {
		content = ext.GetText()
	}
	return evt.Info.Chat.String(), content
}
