package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
)

// Options controls how the page database is opened. Zero values fall back to defaults.
type Options struct {
	Path   string
	Logger logger.Interface

	BusyTimeout time.Duration

	// JournalMode is the SQLite journal mode, WAL unless set.
	JournalMode string

	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
	ConnMaxLife  time.Duration
}

type pragma struct {
	name  string
	value string
}

func (o Options) withDefaults() Options {
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = defaultBusyTimeout
	}
	if o.JournalMode == "" {
		o.JournalMode = defaultJournalMode
	}
	if o.Logger == nil {
		o.Logger = logger.Default.LogMode(logger.Warn)
	}
	return o
}

func (o Options) pragmas() []pragma {
	return []pragma{
		{name: "foreign_keys", value: "ON"},
		{name: "busy_timeout", value: fmt.Sprint(o.BusyTimeout.Milliseconds())},
		{name: "journal_mode", value: o.JournalMode},
	}
}

// dsn mirrors the pragmas as connection parameters so every pooled connection starts configured.
func (o Options) dsn() string {
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprint(o.BusyTimeout.Milliseconds()))
	params.Set("_foreign_keys", "1")
	params.Set("_journal_mode", o.JournalMode)
	return "file:" + o.Path + "?" + params.Encode()
}

// Open connects to the SQLite file at opts.Path, creating its directory when needed.
func Open(opts Options) (*gorm.DB, error) {
	if opts.Path == "" {
		return nil, eris.New("database path is required")
	}
	opts = opts.withDefaults()

	if err := ensureDir(opts.Path); err != nil {
		return nil, err
	}

	conn, err := gorm.Open(sqlite.Open(opts.dsn()), &gorm.Config{Logger: opts.Logger})
	if err != nil {
		return nil, eris.Wrapf(err, "opening sqlite database %s", opts.Path)
	}

	sqlDB, err := SQLDB(conn)
	if err != nil {
		return nil, err
	}
	tunePool(sqlDB, opts)

	for _, p := range opts.pragmas() {
		if err := conn.Exec(fmt.Sprintf("PRAGMA %s = %s;", p.name, p.value)).Error; err != nil {
			_ = sqlDB.Close()
			return nil, eris.Wrapf(err, "applying pragma %s", p.name)
		}
	}

	return conn, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "creating database directory: %s", dir)
	}
	return nil
}

func tunePool(sqlDB *sql.DB, opts Options) {
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxIdle > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdle)
	}
	if opts.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLife)
	}
}

// Close releases the connection pool. A nil handle is a no-op.
func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}

	sqlDB, err := SQLDB(conn)
	if err != nil {
		return err
	}
	return eris.Wrap(sqlDB.Close(), "closing database connection")
}

// SQLDB returns the pool behind a gorm handle.
func SQLDB(conn *gorm.DB) (*sql.DB, error) {
	if conn == nil {
		return nil, eris.New("gorm.DB is nil")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, eris.Wrap(err, "retrieving sql.DB")
	}
	return sqlDB, nil
}

// Ping checks that the page database still answers; the health route uses it.
func Ping(ctx context.Context, conn *gorm.DB) error {
	sqlDB, err := SQLDB(conn)
	if err != nil {
		return err
	}
	return eris.Wrap(sqlDB.PingContext(ctx), "pinging database")
}
