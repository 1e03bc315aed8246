package entities

// Channel names used for logging, metrics and usage counters
const (
	ChannelTwilio   = "twilio"
	ChannelWeb      = "web"
	ChannelTelegram = "telegram"
	ChannelWhatsApp = "whatsapp"
)

type Message struct {
	ID       string
	From     string
	Content  string
	Platform string // one of the Channel* constants
}
