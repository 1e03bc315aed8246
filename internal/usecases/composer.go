package usecases

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"project_newsbot/internal/entities"
)

const (
	// ApologyMessage is the only reply sent when the pipeline fails
	ApologyMessage = "⚠️ Server error. Please try again later."

	ellipsis     = "..."
	readMoreMark = "Read more"

	DefaultMaxItems      = 5
	DefaultSummaryMaxLen = 200
	minSummaryMaxLen     = 20
)

// Composer renders every outbound text. Output depends only on its inputs.
type Composer struct {
	maxItems      int
	summaryMaxLen int
}

func NewComposer(maxItems, summaryMaxLen int) *Composer {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if summaryMaxLen < minSummaryMaxLen {
		summaryMaxLen = DefaultSummaryMaxLen
	}
	return &Composer{maxItems: maxItems, summaryMaxLen: summaryMaxLen}
}

func categoryRange() string {
	return fmt.Sprintf("1-%d", len(entities.AllCategories()))
}

// RenderMenu lists every category with its scope and the language options
func (c *Composer) RenderMenu() string {
	var sb strings.Builder
	sb.WriteString("📰 *NewsBot* - Get latest headlines\n\n")
	sb.WriteString("Choose a category:\n\n")
	for _, cat := range entities.AllCategories() {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", cat.ID, cat.DisplayName, cat.ScopeLabel())
	}

	fmt.Fprintf(&sb, "\nReply with a number (%s) or a name, e.g. *5* or *technology*.\n", categoryRange())
	sb.WriteString("Add a language code for other languages, e.g. *5 hi*:\n")
	for _, l := range entities.AllLanguages() {
		fmt.Fprintf(&sb, "• %s - %s\n", l.Code, l.Indicator)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderListing shows up to maxItems headlines, or the degraded message when
// there is nothing to show
func (c *Composer) RenderListing(category entities.CategoryDescriptor, language entities.LanguageDescriptor, items []entities.ContentItem) string {
	if len(items) == 0 {
		return c.renderDegraded(category, language)
	}
	if len(items) > c.maxItems {
		items = items[:c.maxItems]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📢 *Top %s News* (%s) | %s\n\n", category.DisplayName, category.ScopeLabel(), language.Indicator)
	for i, item := range items {
		fmt.Fprintf(&sb, "*%d. %s*\n", i+1, collapseSpaces(item.Title))
		fmt.Fprintf(&sb, "🔗 %s\n", displayLink(item.Link))
		sb.WriteString(c.truncateSummary(item.Summary))
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Reply with %s for another category, add a language code to switch language (e.g. *%d hi*), or \"menu\" for options.",
		categoryRange(), category.ID)
	return sb.String()
}

func (c *Composer) renderDegraded(category entities.CategoryDescriptor, language entities.LanguageDescriptor) string {
	return fmt.Sprintf("⚠️ Couldn't fetch *%s* news in %s (%s) right now.\n\n"+
		"Try another category (%s), another language (e.g. *%d %s*), or type \"menu\" for options.",
		category.DisplayName, language.DisplayName, language.Indicator,
		categoryRange(), category.ID, alternateLanguage(language).Code)
}

// RenderInvalid re-lists the menu. The header is not localized.
func (c *Composer) RenderInvalid(_ entities.LanguageDescriptor) string {
	return "❌ Invalid option. Please choose:\n\n" + c.RenderMenu()
}

func (c *Composer) truncateSummary(summary string) string {
	s := collapseSpaces(summary)
	if utf8.RuneCountInString(s) <= c.summaryMaxLen {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:c.summaryMaxLen-utf8.RuneCountInString(ellipsis)]), " ")
	return cut + ellipsis
}

// displayLink shortens a URL to its host, e.g. "bbc.com"
func displayLink(link string) string {
	if link == "" {
		return readMoreMark
	}
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return readMoreMark
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// alternateLanguage suggests the default language, or Hindi when the
// default already failed
func alternateLanguage(current entities.LanguageDescriptor) entities.LanguageDescriptor {
	def := entities.DefaultLanguage()
	if current.Code != def.Code {
		return def
	}
	if hi, ok := entities.LanguageHindi.Descriptor(); ok {
		return hi
	}
	return def
}
