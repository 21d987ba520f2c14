package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"social-report/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type DB struct {
	conn   *sql.DB
	driver string
	logger *logrus.Logger
	now    func() time.Time
}

func NewConnection(ctx context.Context, cfg *config.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	var dsn string
	switch driver {
	case DriverPostgres:
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		logger.Infof("Connecting to database: host=%s port=%d dbname=%s user=%s", cfg.Host, cfg.Port, cfg.Name, cfg.User)
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
		dsn = cfg.Path + "?_foreign_keys=on&_busy_timeout=5000"
		logger.Infof("Opening sqlite database: %s", cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// single writer avoids "database is locked" under concurrent saves
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:   conn,
		driver: driver,
		logger: logger,
		now:    time.Now,
	}

	logger.Info("Database connection established")
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id         TEXT PRIMARY KEY,
		client     TEXT NOT NULL,
		generated  TEXT NOT NULL,
		stored_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_client_stored ON snapshots (client, stored_at)`,
	`CREATE TABLE IF NOT EXISTS snapshot_platforms (
		snapshot_id  TEXT NOT NULL REFERENCES snapshots (id) ON DELETE CASCADE,
		position     INTEGER NOT NULL,
		platform_key TEXT NOT NULL,
		worksheet    TEXT NOT NULL,
		sheet_id     TEXT NOT NULL,
		raw_count    INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_posts (
		snapshot_id       TEXT NOT NULL REFERENCES snapshots (id) ON DELETE CASCADE,
		platform_position INTEGER NOT NULL,
		position          INTEGER NOT NULL,
		created_at        TEXT NOT NULL,
		media_type        TEXT NOT NULL,
		is_video          TEXT NOT NULL,
		impressions       TEXT NOT NULL,
		likes             TEXT NOT NULL,
		comments          TEXT NOT NULL,
		shares            TEXT NOT NULL,
		platform          TEXT NOT NULL,
		agent_name        TEXT NOT NULL,
		account_name      TEXT NOT NULL,
		post_id           TEXT NOT NULL,
		post_url          TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, platform_position, position)
	)`,
}

// RunMigrations creates the schema if it does not exist yet.
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info("Running database migrations...")

	for i, stmt := range migrations {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i+1, err)
		}
	}

	db.logger.Info("Migrations completed successfully")
	return nil
}

// rebind rewrites '?' placeholders into the driver's form.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}
