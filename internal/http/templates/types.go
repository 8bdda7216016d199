package templates

// DefaultFooterNote is shown in the shared layout when a page does not supply custom text.
const DefaultFooterNote = "Snippets are stored locally. Use the export endpoint to keep a backup."

// PageSummaryView is one row of the index listing.
type PageSummaryView struct {
	ID            string
	Title         string
	DocumentTitle string
	UpdatedLabel  string
	PreviewURL    string
	Current       bool
	HasThumbnail  bool
}

// IndexPageData contains dynamic values rendered on the landing page.
type IndexPageData struct {
	Title      string
	Pages      []PageSummaryView
	FooterNote string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}
