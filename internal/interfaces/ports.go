package interfaces

import (
	"context"

	"project_newsbot/internal/entities"
)

// ContentGateway fetches headlines for a resolved category and language.
// Implementations never return an error: any provider failure yields an
// empty slice, and the result never exceeds the configured item limit.
type ContentGateway interface {
	FetchNews(ctx context.Context, category entities.CategoryDescriptor, language entities.LanguageDescriptor) []entities.ContentItem
}

// Messenger pushes a reply to a chat on a channel that is not request/response
type Messenger interface {
	SendMessage(to, content string) error
}

// UsageRecorder counts traffic per channel
type UsageRecorder interface {
	IncrementReceived(ctx context.Context, channel string) error
	IncrementSent(ctx context.Context, channel string) error
}
