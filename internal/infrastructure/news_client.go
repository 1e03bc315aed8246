package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"project_newsbot/internal/entities"
)

const (
	DefaultNewsBaseURL = "https://gnews.io/api/v4"

	// MissingSummary replaces empty provider descriptions
	MissingSummary = "No description available."

	maxResponseBytes = 1 << 20
)

// ProviderErrorKind classifies why a provider call produced no items
type ProviderErrorKind string

const (
	ProviderTransport ProviderErrorKind = "transport"
	ProviderStatus    ProviderErrorKind = "status"
	ProviderDecode    ProviderErrorKind = "decode"
)

// ProviderError describes a failed provider call. It never leaves the gateway.
type ProviderError struct {
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Kind == ProviderStatus {
		return fmt.Sprintf("news provider: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("news provider %s error: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewsClientConfig configures NewsClient
type NewsClientConfig struct {
	BaseURL  string
	APIKey   string
	MaxItems int
	Timeout  time.Duration
}

// NewsClient is the GNews-backed content gateway
type NewsClient struct {
	baseURL    string
	apiKey     string
	maxItems   int
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

func NewNewsClient(cfg NewsClientConfig, logger *zap.Logger, metrics *Metrics) *NewsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNewsBaseURL
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxItems:   cfg.MaxItems,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("news"),
		metrics:    metrics,
	}
}

type newsArticle struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	Source      *struct {
		Name string `json:"name"`
	} `json:"source"`
}

type newsResponse struct {
	Articles *[]newsArticle `json:"articles"`
}

// FetchNews returns at most maxItems headlines. Failures are logged and
// reported as an empty slice; there are no retries.
func (c *NewsClient) FetchNews(ctx context.Context, category entities.CategoryDescriptor, language entities.LanguageDescriptor) []entities.ContentItem {
	start := time.Now()
	items, err := c.fetch(ctx, category, language)
	elapsed := time.Since(start)

	if err != nil {
		fields := []zap.Field{
			zap.String("category", category.Key),
			zap.String("language", language.Code),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		}
		var perr *ProviderError
		if errors.As(err, &perr) {
			fields = append(fields, zap.String("kind", string(perr.Kind)), zap.Int("status", perr.StatusCode))
		}
		c.logger.Warn("news fetch failed", fields...)
		c.metrics.ObserveProvider(OutcomeError, elapsed)
		return []entities.ContentItem{}
	}

	outcome := OutcomeSuccess
	if len(items) == 0 {
		outcome = OutcomeEmpty
	}
	c.metrics.ObserveProvider(outcome, elapsed)
	c.logger.Debug("news fetched",
		zap.String("category", category.Key),
		zap.String("language", language.Code),
		zap.Int("items", len(items)),
		zap.Duration("elapsed", elapsed),
	)
	return items
}

func (c *NewsClient) fetch(ctx context.Context, category entities.CategoryDescriptor, language entities.LanguageDescriptor) ([]entities.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(category, language), nil)
	if err != nil {
		return nil, &ProviderError{Kind: ProviderTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Kind: ProviderTransport, Err: redactKey(err, c.apiKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &ProviderError{Kind: ProviderStatus, StatusCode: resp.StatusCode}
	}

	var payload newsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, &ProviderError{Kind: ProviderDecode, StatusCode: resp.StatusCode, Err: err}
	}
	if payload.Articles == nil {
		return nil, &ProviderError{Kind: ProviderDecode, StatusCode: resp.StatusCode, Err: errors.New("missing articles list")}
	}

	return c.toItems(*payload.Articles), nil
}

func (c *NewsClient) requestURL(category entities.CategoryDescriptor, language entities.LanguageDescriptor) string {
	q := url.Values{}
	q.Set("topic", category.ProviderTopic)
	q.Set("lang", language.Code)
	q.Set("max", strconv.Itoa(c.maxItems))
	q.Set("apikey", c.apiKey)
	if !category.IsGlobal() {
		q.Set("country", category.RegionScope)
	}
	return c.baseURL + "/top-headlines?" + q.Encode()
}

func (c *NewsClient) toItems(articles []newsArticle) []entities.ContentItem {
	items := make([]entities.ContentItem, 0, c.maxItems)
	for _, a := range articles {
		if len(items) == c.maxItems {
			break
		}
		title := strings.TrimSpace(a.Title)
		if title == "" {
			continue
		}
		item := entities.ContentItem{Title: title, Summary: MissingSummary}
		if a.Description != nil && strings.TrimSpace(*a.Description) != "" {
			item.Summary = strings.TrimSpace(*a.Description)
		}
		if a.URL != nil {
			item.Link = strings.TrimSpace(*a.URL)
		}
		if a.Source != nil {
			item.SourceName = a.Source.Name
		}
		items = append(items, item)
	}
	return items
}

// redactKey keeps the api key out of logged url.Error messages
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
