package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"instagram-feed/infrastructure/logger"
)

// EnsureSchema creates the credential and snapshot tables on PostgreSQL.
// Safe to call at every startup.
func EnsureSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := []struct {
		name string
		stmt string
	}{
		{"instagram_credentials", `CREATE TABLE IF NOT EXISTS instagram_credentials (
        platform TEXT PRIMARY KEY,
        subject_account_id TEXT NOT NULL DEFAULT '',
        access_token TEXT NOT NULL,
        kind TEXT NOT NULL,
        issued_at TIMESTAMPTZ NOT NULL,
        expires_at TIMESTAMPTZ NULL,
        updated_at TIMESTAMPTZ NOT NULL
    )`},
		{"instagram_feed_snapshots", `CREATE TABLE IF NOT EXISTS instagram_feed_snapshots (
        cache_key TEXT PRIMARY KEY,
        data JSONB NOT NULL,
        fetched_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    )`},
	}
	for _, d := range ddl {
		if _, err := db.ExecContext(ctx, d.stmt); err != nil {
			return fmt.Errorf("create %s table: %w", d.name, err)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_instagram_credentials_expires_at ON instagram_credentials(expires_at)`); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed creating idx_instagram_credentials_expires_at")
	}
	return nil
}

// EnsureSchemaMSSQL is EnsureSchema for SQL Server.
func EnsureSchemaMSSQL(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	credentials := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.instagram_credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[instagram_credentials] (
        platform NVARCHAR(64) NOT NULL PRIMARY KEY,
        subject_account_id NVARCHAR(128) NOT NULL DEFAULT '',
        access_token NVARCHAR(MAX) NOT NULL,
        kind NVARCHAR(32) NOT NULL,
        issued_at DATETIMEOFFSET NOT NULL,
        expires_at DATETIMEOFFSET NULL,
        updated_at DATETIMEOFFSET NOT NULL
    );
END`
	if _, err := db.ExecContext(ctx, credentials); err != nil {
		return fmt.Errorf("create instagram_credentials table (mssql): %w", err)
	}

	snapshots := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.instagram_feed_snapshots') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[instagram_feed_snapshots] (
        cache_key NVARCHAR(128) NOT NULL PRIMARY KEY,
        data NVARCHAR(MAX) NOT NULL,
        fetched_at DATETIMEOFFSET NOT NULL,
        updated_at DATETIMEOFFSET NOT NULL
    );
END`
	if _, err := db.ExecContext(ctx, snapshots); err != nil {
		return fmt.Errorf("create instagram_feed_snapshots table (mssql): %w", err)
	}
	return nil
}
