package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"project_newsbot/internal/entities"
	"project_newsbot/internal/infrastructure"
	"project_newsbot/internal/interfaces"
)

// RateLimitedMessage is sent instead of running the pipeline for senders over their limit
const RateLimitedMessage = "⏳ You're sending messages too quickly. Please wait a moment and try again."

// Metric labels for messages that never reached a classified intent
const (
	labelError       = "error"
	labelRateLimited = "rate_limited"
)

var errNoCategory = errors.New("selection without a registered category")

// MessageService routes inbound text to a reply: normalize, classify, fetch
// when a category was selected, then compose. It keeps no per-conversation state.
type MessageService struct {
	gateway  interfaces.ContentGateway
	composer *Composer
	logger   *zap.Logger

	Metrics *infrastructure.Metrics
	Limiter *infrastructure.MessageRateLimiter
	Usage   interfaces.UsageRecorder

	// Push channels, used by ProcessMessage
	TelegramClient interfaces.Messenger
	WhatsAppClient interfaces.Messenger
}

func NewMessageService(gateway interfaces.ContentGateway, composer *Composer, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		gateway:  gateway,
		composer: composer,
		logger:   logger.Named("router"),
	}
}

// Handle turns raw message text into the outbound body. Every failure,
// including a panic, becomes ApologyMessage; error details never reach the user.
func (s *MessageService) Handle(ctx context.Context, rawText string) string {
	reply, _ := s.handle(ctx, rawText)
	return reply
}

func (s *MessageService) handle(ctx context.Context, rawText string) (reply string, label string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("message pipeline panicked", zap.Any("panic", r), zap.Stack("stack"))
			reply, label = ApologyMessage, labelError
		}
	}()

	reply, intent, err := s.route(ctx, rawText)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.logger.Info("message rejected", zap.Error(err))
		} else {
			s.logger.Error("message pipeline failed", zap.Error(err))
		}
		return ApologyMessage, labelError
	}
	return reply, intent.String()
}

func (s *MessageService) route(ctx context.Context, rawText string) (string, entities.Intent, error) {
	tokens, err := Normalize(rawText)
	if err != nil {
		return "", entities.IntentInvalid, err
	}

	cmd := Classify(tokens)
	switch cmd.Intent {
	case entities.IntentGreeting:
		return s.composer.RenderMenu(), cmd.Intent, nil

	case entities.IntentSelection:
		category, ok := cmd.Category.Descriptor()
		if !ok {
			return "", cmd.Intent, fmt.Errorf("%w: %d", errNoCategory, cmd.Category)
		}
		if s.gateway == nil {
			return "", cmd.Intent, errors.New("no content gateway configured")
		}
		items := s.gateway.FetchNews(ctx, category, cmd.Language)
		return s.composer.RenderListing(category, cmd.Language, items), cmd.Intent, nil

	default:
		return s.composer.RenderInvalid(cmd.Language), cmd.Intent, nil
	}
}

// Respond is the entry point for transports: it applies the per-sender rate
// limit, runs Handle and records usage and metrics for the channel.
func (s *MessageService) Respond(ctx context.Context, msg entities.Message) string {
	start := time.Now()
	s.recordUsage(ctx, msg.Platform, true)

	var reply, label string
	key := infrastructure.SenderKey(msg.Platform, msg.From)
	if s.Limiter != nil && !s.Limiter.Allow(key) {
		s.logger.Info("sender rate limited",
			zap.String("channel", msg.Platform),
			zap.String("from", msg.From),
			zap.Duration("retry_after", s.Limiter.WaitTime(key)),
		)
		reply, label = RateLimitedMessage, labelRateLimited
	} else {
		reply, label = s.handle(ctx, msg.Content)
	}

	s.Metrics.ObserveMessage(msg.Platform, label)
	s.recordUsage(ctx, msg.Platform, false)
	s.logger.Info("message handled",
		zap.String("channel", msg.Platform),
		zap.String("from", msg.From),
		zap.String("intent", label),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reply
}

// ProcessMessage answers a message from a push channel (Telegram, WhatsApp)
func (s *MessageService) ProcessMessage(ctx context.Context, msg entities.Message) error {
	return s.sendReply(msg, s.Respond(ctx, msg))
}

// sendReply sends message back to user based on platform
func (s *MessageService) sendReply(msg entities.Message, text string) error {
	switch {
	case msg.Platform == entities.ChannelWhatsApp && s.WhatsAppClient != nil:
		return s.WhatsAppClient.SendMessage(msg.From, text)
	case msg.Platform == entities.ChannelTelegram && s.TelegramClient != nil:
		return s.TelegramClient.SendMessage(msg.From, text)
	}
	return fmt.Errorf("no messaging client available for %q", msg.Platform)
}

func (s *MessageService) recordUsage(ctx context.Context, channel string, received bool) {
	if s.Usage == nil {
		return
	}
	var err error
	if received {
		err = s.Usage.IncrementReceived(ctx, channel)
	} else {
		err = s.Usage.IncrementSent(ctx, channel)
	}
	if err != nil {
		s.logger.Warn("usage not recorded", zap.String("channel", channel), zap.Error(err))
	}
}
