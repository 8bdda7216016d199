package pages

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const schemaVersionRowID = 1

// Migrate creates the pages schema and pins it to SchemaVersion.
// A database recording any other version is rejected.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "pages.migrate", "schema_version": SchemaVersion}
	if logger != nil {
		logger.WithFields(logFields).Info("applying pages schema")
	}

	fail := func(err error, message string) error {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("pages schema migration failed")
		}
		return eris.Wrap(err, message)
	}

	tx := db.WithContext(ctx)

	if err := tx.AutoMigrate(&SchemaVersionRecord{}); err != nil {
		return fail(err, "auto migrating schema version table")
	}

	var current SchemaVersionRecord
	found := tx.Where("id = ?", schemaVersionRowID).Limit(1).Find(&current)
	if found.Error != nil {
		return fail(found.Error, "reading pages schema version")
	}

	if found.RowsAffected > 0 && current.Version != SchemaVersion {
		return fail(eris.Errorf("unsupported pages schema version %d, expected %d", current.Version, SchemaVersion), "checking pages schema version")
	}

	if err := tx.AutoMigrate(&PageRecord{}); err != nil {
		return fail(err, "auto migrating pages schema")
	}

	if found.RowsAffected == 0 {
		if err := tx.Create(&SchemaVersionRecord{ID: schemaVersionRowID, Version: SchemaVersion}).Error; err != nil {
			return fail(err, "recording pages schema version")
		}
		if logger != nil {
			logger.WithFields(logFields).Debug("recorded pages schema version")
		}
	}

	if logger != nil {
		logger.WithFields(logFields).Info("pages schema migration complete")
	}

	return nil
}
