package pages

// DefaultTitle is assigned to pages created without an explicit title.
const DefaultTitle = "Untitled Snippet"

// BlankHTML is the document body given to pages created without code.
const BlankHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>New Snippet</title>
  <style>
    body { font-family: system-ui, sans-serif; padding: 2rem; line-height: 1.6; }
    h1 { font-size: 2rem; }
    .muted { color: #666; }
  </style>
</head>
<body>
  <h1>Hello</h1>
  <p class="muted">Replace this HTML with your snippet to start previewing.</p>
</body>
</html>`

// Page is a user-authored HTML snippet. Timestamps are milliseconds since the Unix epoch.
type Page struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Code      string  `json:"code"`
	Thumbnail *string `json:"thumbnail"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// Backup is the export/import envelope.
type Backup struct {
	Pages []Page `json:"pages"`
}

// CreateParams carries the optional values for a new page. Nil fields fall back to defaults.
type CreateParams struct {
	Title *string
	Code  *string
}

// PagePatch lists the user-editable fields of a page. Nil fields keep their current value;
// ClearThumbnail resets the thumbnail to null and wins over Thumbnail.
type PagePatch struct {
	Title          *string
	Code           *string
	Thumbnail      *string
	ClearThumbnail bool
}

// State is a consistent snapshot of the store's view state.
type State struct {
	Pages         []Page  `json:"pages"`
	CurrentPageID *string `json:"currentPageId"`
	Loading       bool    `json:"loading"`
}

// CurrentID returns the selected page id, empty when nothing is selected.
func (s State) CurrentID() string {
	if s.CurrentPageID == nil {
		return ""
	}
	return *s.CurrentPageID
}

func (p Page) clone() Page {
	if p.Thumbnail != nil {
		thumb := *p.Thumbnail
		p.Thumbnail = &thumb
	}
	return p
}
