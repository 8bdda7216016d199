package pages

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistent pages table keyed by id.
type Repository interface {
	// Add inserts a new page and fails when the id already exists.
	Add(ctx context.Context, page *Page) error
	// Put inserts or overwrites the page with the same id.
	Put(ctx context.Context, page *Page) error
	// Delete removes the page with the given id. Missing ids are not an error.
	Delete(ctx context.Context, id string) error
	// All returns every stored page in no particular order.
	All(ctx context.Context) ([]Page, error)
}

// ErrDuplicatePage is returned by Add when the id is already taken.
var ErrDuplicatePage = eris.New("page already exists")

// GormRepository persists pages using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

func (r *GormRepository) Add(ctx context.Context, page *Page) error {
	if err := validatePage(page); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(toRecord(page)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			dupErr := eris.Wrapf(ErrDuplicatePage, "adding page: %s", page.ID)
			r.logError(logrus.Fields{"page_id": page.ID}, dupErr, "adding page with duplicate id")
			return dupErr
		}
		r.logError(logrus.Fields{"page_id": page.ID}, err, "adding page")
		return eris.Wrapf(err, "adding page: %s", page.ID)
	}

	return nil
}

func (r *GormRepository) Put(ctx context.Context, page *Page) error {
	if err := validatePage(page); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(toRecord(page)).Error
	if err != nil {
		r.logError(logrus.Fields{"page_id": page.ID}, err, "putting page")
		return eris.Wrapf(err, "putting page: %s", page.ID)
	}

	return nil
}

// Delete removes the row with the given id. Blank and unknown ids are no-ops.
func (r *GormRepository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}

	if err := r.db.WithContext(ctx).Delete(&PageRecord{}, "id = ?", id).Error; err != nil {
		r.logError(logrus.Fields{"page_id": id}, err, "deleting page")
		return eris.Wrapf(err, "deleting page: %s", id)
	}

	return nil
}

func (r *GormRepository) All(ctx context.Context) ([]Page, error) {
	var records []PageRecord

	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		r.logError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	pages := make([]Page, 0, len(records))
	for i := range records {
		pages = append(pages, toPage(&records[i]))
	}

	return pages, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func validatePage(page *Page) error {
	if page == nil {
		return eris.New("page is nil")
	}
	if strings.TrimSpace(page.ID) == "" {
		return eris.New("page id is required")
	}
	return nil
}
