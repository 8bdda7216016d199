package pages

// SchemaVersion is the only pages table layout this build understands.
const SchemaVersion = 1

// PageRecord is the persisted row for a page.
type PageRecord struct {
	ID        string  `gorm:"primaryKey;size:64"`
	Title     string  `gorm:"type:text;not null"`
	Code      string  `gorm:"type:text;not null"`
	Thumbnail *string `gorm:"type:text"`
	CreatedAt int64   `gorm:"column:created_at;not null;index:idx_pages_created_at;autoCreateTime:false"`
	UpdatedAt int64   `gorm:"column:updated_at;not null;index:idx_pages_updated_at;autoUpdateTime:false"`
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "pages"
}

// SchemaVersionRecord stores the layout version of the pages table in a single row.
type SchemaVersionRecord struct {
	ID      int `gorm:"primaryKey;autoIncrement:false"`
	Version int `gorm:"not null"`
}

// TableName defines the table name for the SchemaVersionRecord model.
func (SchemaVersionRecord) TableName() string {
	return "schema_versions"
}

func toRecord(page *Page) *PageRecord {
	return &PageRecord{
		ID:        page.ID,
		Title:     page.Title,
		Code:      page.Code,
		Thumbnail: page.Thumbnail,
		CreatedAt: page.CreatedAt,
		UpdatedAt: page.UpdatedAt,
	}
}

func toPage(record *PageRecord) Page {
	return Page{
		ID:        record.ID,
		Title:     record.Title,
		Code:      record.Code,
		Thumbnail: record.Thumbnail,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
