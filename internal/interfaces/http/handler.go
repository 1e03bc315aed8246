package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"project_newsbot/internal/entities"
	"project_newsbot/internal/infrastructure"
	"project_newsbot/internal/usecases"
)

const serviceName = "newsbot"

// Responder answers one inbound message; *usecases.MessageService implements it
type Responder interface {
	Respond(ctx context.Context, msg entities.Message) string
}

// RouterDeps is everything SetupRoutes wires. Optional parts may be nil and
// their routes then answer 503.
type RouterDeps struct {
	Service    Responder
	Auth       *usecases.AuthUsecase
	Usage      UsageReader
	Limiter    *infrastructure.MessageRateLimiter
	WhatsApp   WhatsAppSession
	Metrics    *infrastructure.Metrics
	Middleware *Middleware
	Twilio     *TwilioVerifier
	Logger     *zap.Logger
	Version    string
}

type Handler struct {
	service Responder
	twilio  *TwilioVerifier
	logger  *zap.Logger
	version string
}

func NewHandler(service Responder, twilio *TwilioVerifier, logger *zap.Logger, version string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, twilio: twilio, logger: logger, version: version}
}

func SetupRoutes(r *gin.Engine, deps RouterDeps) {
	h := NewHandler(deps.Service, deps.Twilio, deps.Logger, deps.Version)
	adminHandler := NewAdminHandler(deps.Usage, deps.Limiter, deps.WhatsApp, h.logger)

	mw := deps.Middleware
	if mw == nil {
		mw = NewMiddleware("")
	}

	r.Use(RequestLogger(h.logger, deps.Metrics))
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20))
	r.Use(mw.CORSMiddleware())

	// Public Routes
	r.GET("/", h.Index)
	r.GET("/twilio/health", h.Health)
	r.POST("/twilio/incoming", h.HandleTwilioMessage)
	r.POST("/webhook/web", h.HandleWebMessage)
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			if deps.Auth == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin API disabled"})
				return
			}
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := deps.Auth.Login(loginReq.Username, loginReq.Password)
			if err != nil {
				h.logger.Info("admin login rejected", zap.String("username", loginReq.Username))
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}

	// Admin-only Routes
	admin := r.Group("/api/admin")
	admin.Use(mw.AuthRequired())
	admin.Use(mw.AdminRequired())
	admin.Use(mw.RateLimitPerUser(5, 10))
	{
		admin.GET("/usage", adminHandler.GetUsage)
		admin.GET("/registry", adminHandler.GetRegistry)
		admin.GET("/limiter", adminHandler.GetLimiterStats)
		admin.POST("/limiter/reset", adminHandler.ResetLimiter)
		admin.GET("/whatsapp/status", adminHandler.GetWhatsAppStatus)
		admin.GET("/whatsapp/qr", adminHandler.GetWhatsAppQR)
		admin.POST("/whatsapp/logout", adminHandler.LogoutWhatsApp)
	}
}

func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, "NewsBot is running")
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": h.version,
	})
}

// HandleTwilioMessage answers an SMS/WhatsApp webhook from Twilio with TwiML
func (h *Handler) HandleTwilioMessage(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "Failed to parse form")
		return
	}
	if h.twilio != nil && !h.twilio.Verify(c.Request) {
		h.logger.Warn("twilio signature mismatch", zap.String("remote_addr", c.ClientIP()))
		c.String(http.StatusForbidden, "Invalid signature")
		return
	}

	msg := entities.Message{
		ID:       c.Request.PostForm.Get("MessageSid"),
		From:     SanitizeString(c.Request.PostForm.Get("From")),
		Content:  TruncateString(SanitizeString(c.Request.PostForm.Get("Body")), MaxContentLength),
		Platform: entities.ChannelTwilio,
	}
	if msg.From == "" {
		msg.From = c.ClientIP()
	}

	reply := h.service.Respond(c.Request.Context(), msg)

	body, err := EncodeTwiML(reply)
	if err != nil {
		h.logger.Error("encode twiml", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to encode reply")
		return
	}
	c.Data(http.StatusOK, twimlContentType, body)
}

// HandleWebMessage is the JSON channel used by the web widget and for testing
func (h *Handler) HandleWebMessage(c *gin.Context) {
	var payload struct {
		From    string `json:"from"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg := entities.Message{
		ID:       c.GetString(requestIDKey),
		From:     SanitizeString(payload.From),
		Content:  TruncateString(SanitizeString(payload.Content), MaxContentLength),
		Platform: entities.ChannelWeb,
	}
	if msg.From == "" {
		msg.From = c.ClientIP()
	}

	c.JSON(http.StatusOK, gin.H{"reply": h.service.Respond(c.Request.Context(), msg)})
}
