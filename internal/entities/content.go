package entities

// ContentItem is a single headline returned by the news provider.
// Items live for one request only.
type ContentItem struct {
	Title      string
	Summary    string
	Link       string // may be empty
	SourceName string
}
