package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"instagram-feed/domain/model"
)

type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db}
}

func (r *CredentialRepositoryMSSQL) GetCredential(ctx context.Context, platform string) (*model.Credential, error) {
	if r.db == nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT access_token, kind, issued_at, expires_at, subject_account_id FROM dbo.[instagram_credentials] WHERE platform=@p1`, platform)
	return scanCredential(row)
}

// UpsertCredential merges by platform.
func (r *CredentialRepositoryMSSQL) UpsertCredential(ctx context.Context, platform string, cred *model.Credential) error {
	if r.db == nil {
		return nil
	}
	q := `MERGE dbo.[instagram_credentials] AS target
USING (VALUES (@p1)) AS src(platform)
ON target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    subject_account_id=@p2,
    access_token=@p3,
    kind=@p4,
    issued_at=@p5,
    expires_at=@p6,
    updated_at=@p7
WHEN NOT MATCHED THEN
    INSERT (platform, subject_account_id, access_token, kind, issued_at, expires_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7);`
	_, err := r.db.ExecContext(ctx, q, platform, cred.SubjectAccountID, cred.Value, string(cred.Kind), cred.IssuedAt.UTC(), nullTime(cred.ExpiresAt), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("merge instagram_credentials (mssql): %w", err)
	}
	return nil
}

func (r *CredentialRepositoryMSSQL) DeleteCredential(ctx context.Context, platform string) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[instagram_credentials] WHERE platform=@p1`, platform); err != nil {
		return fmt.Errorf("delete instagram_credentials (mssql): %w", err)
	}
	return nil
}
