package pages

import (
	"bytes"
	"context"
	stdlog "log"
	"path/filepath"
	"strings"
	"testing"

	gormlogger "gorm.io/gorm/logger"

	"github.com/senzi/llm-render-box/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	_, gormDB := setupRepository(t)

	if err := Migrate(context.Background(), gormDB, silentLogger()); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}

	var rows int64
	if err := gormDB.Model(&SchemaVersionRecord{}).Count(&rows).Error; err != nil {
		t.Fatalf("counting schema versions failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected exactly one schema version row, got %d", rows)
	}

	var version SchemaVersionRecord
	if err := gormDB.First(&version).Error; err != nil {
		t.Fatalf("reading schema version failed: %v", err)
	}
	if version.Version != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, version.Version)
	}
}

func TestMigrateCreatesTimestampIndexes(t *testing.T) {
	t.Parallel()

	_, gormDB := setupRepository(t)

	for _, index := range []string{"idx_pages_created_at", "idx_pages_updated_at"} {
		if !gormDB.Migrator().HasIndex(&PageRecord{}, index) {
			t.Fatalf("expected index %s to exist", index)
		}
	}
}

func TestMigrateRejectsUnknownSchemaVersion(t *testing.T) {
	t.Parallel()

	_, gormDB := setupRepository(t)

	if err := gormDB.Model(&SchemaVersionRecord{}).Where("id = ?", schemaVersionRowID).Update("version", SchemaVersion+1).Error; err != nil {
		t.Fatalf("bumping schema version failed: %v", err)
	}

	err := Migrate(context.Background(), gormDB, silentLogger())
	if err == nil {
		t.Fatalf("expected Migrate to reject a newer schema version")
	}
	if !strings.Contains(err.Error(), "unsupported pages schema version") {
		t.Fatalf("expected unsupported version error, got %v", err)
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Parallel()

	if err := Migrate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestMigrateFreshDatabaseLogsNoMissingRecord(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	gormDB, err := db.Open(db.Options{
		Path: filepath.Join(t.TempDir(), "fresh.db"),
		Logger: gormlogger.New(stdlog.New(&out, "", 0), gormlogger.Config{
			LogLevel: gormlogger.Warn,
		}),
	})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	if err := Migrate(context.Background(), gormDB, silentLogger()); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	if strings.Contains(out.String(), "record not found") {
		t.Fatalf("expected no record not found log on a fresh database, got %q", out.String())
	}

	var rows int64
	if err := gormDB.Model(&SchemaVersionRecord{}).Count(&rows).Error; err != nil {
		t.Fatalf("counting schema versions failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected schema version row to be recorded, got %d", rows)
	}
}
