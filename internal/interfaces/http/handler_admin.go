package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"project_newsbot/internal/entities"
	"project_newsbot/internal/infrastructure"
	"project_newsbot/internal/repository"
)

// UsageReader is the read side of the usage counters
type UsageReader interface {
	GetTodayUsage(ctx context.Context, channel string) (sent, received int, err error)
	GetUsageHistory(ctx context.Context, days int) ([]repository.DailyUsage, error)
}

var usageChannels = []string{
	entities.ChannelTwilio,
	entities.ChannelWeb,
	entities.ChannelTelegram,
	entities.ChannelWhatsApp,
}

// WhatsAppSession is the linked-device control surface of *infrastructure.WhatsAppClient
type WhatsAppSession interface {
	GetQR() string
	IsLoggedIn() bool
	IsConnected() bool
	GetUserInfo() (string, string)
	Logout(ctx context.Context) error
}

type AdminHandler struct {
	usage    UsageReader
	limiter  *infrastructure.MessageRateLimiter
	whatsApp WhatsAppSession
	logger   *zap.Logger
}

func NewAdminHandler(usage UsageReader, limiter *infrastructure.MessageRateLimiter, whatsApp WhatsAppSession, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		usage:    usage,
		limiter:  limiter,
		whatsApp: whatsApp,
		logger:   logger,
	}
}

// GetUsage returns per-day counters and their totals for the last ?days= days
func (h *AdminHandler) GetUsage(c *gin.Context) {
	if h.usage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Usage tracking disabled"})
		return
	}
	days, ok := ParseDays(c.Query("days"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
		return
	}

	history, err := h.usage.GetUsageHistory(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("fetch usage history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch usage"})
		return
	}
	if history == nil {
		history = []repository.DailyUsage{}
	}

	today := make(map[string]repository.ChannelSum, len(usageChannels))
	for _, channel := range usageChannels {
		sent, received, err := h.usage.GetTodayUsage(c.Request.Context(), channel)
		if err != nil {
			h.logger.Error("fetch today usage", zap.String("channel", channel), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch usage"})
			return
		}
		today[channel] = repository.ChannelSum{Sent: sent, Received: received}
	}

	c.JSON(http.StatusOK, gin.H{
		"today":   today,
		"summary": repository.Summarize(days, history),
		"history": history,
	})
}

// GetRegistry lists the categories and languages users can pick from
func (h *AdminHandler) GetRegistry(c *gin.Context) {
	categories := make([]gin.H, 0)
	for _, cat := range entities.AllCategories() {
		categories = append(categories, gin.H{
			"id":      int(cat.ID),
			"key":     cat.Key,
			"name":    cat.DisplayName,
			"topic":   cat.ProviderTopic,
			"scope":   cat.ScopeLabel(),
			"aliases": cat.Aliases,
		})
	}

	languages := make([]gin.H, 0)
	for _, l := range entities.AllLanguages() {
		languages = append(languages, gin.H{
			"code":      l.Code,
			"name":      l.DisplayName,
			"indicator": l.Indicator,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"categories":       categories,
		"languages":        languages,
		"default_language": entities.DefaultLanguage().Code,
	})
}

func (h *AdminHandler) GetLimiterStats(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	stats := h.limiter.GetStats()
	stats["enabled"] = true
	c.JSON(http.StatusOK, stats)
}

// ResetLimiter clears one sender's bucket, e.g. after a false positive
func (h *AdminHandler) ResetLimiter(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rate limiting disabled"})
		return
	}
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Sender  string `json:"sender" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel and sender are required"})
		return
	}

	key := infrastructure.SenderKey(req.Channel, SanitizeString(req.Sender))
	h.limiter.Reset(key)
	h.logger.Info("sender limit reset", zap.String("key", key), zap.String("by", c.GetString(subjectKey)))
	c.JSON(http.StatusOK, gin.H{"status": "reset", "key": key})
}

// GetWhatsAppStatus returns the linked device state
func (h *AdminHandler) GetWhatsAppStatus(c *gin.Context) {
	if h.whatsApp == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "connected": false})
		return
	}

	phone, name := h.whatsApp.GetUserInfo()
	c.JSON(http.StatusOK, gin.H{
		"enabled":   true,
		"logged_in": h.whatsApp.IsLoggedIn(),
		"connected": h.whatsApp.IsConnected(),
		"phone":     phone,
		"name":      name,
		"hasQR":     h.whatsApp.GetQR() != "",
	})
}

// GetWhatsAppQR returns the pairing QR code as PNG
func (h *AdminHandler) GetWhatsAppQR(c *gin.Context) {
	if h.whatsApp == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp not configured")
		return
	}

	code := h.whatsApp.GetQR()
	if code == "" {
		if h.whatsApp.IsLoggedIn() {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("encode whatsapp qr", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// LogoutWhatsApp unlinks the device; a new QR code follows
func (h *AdminHandler) LogoutWhatsApp(c *gin.Context) {
	if h.whatsApp == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}

	if err := h.whatsApp.Logout(c.Request.Context()); err != nil {
		h.logger.Warn("whatsapp logout", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
