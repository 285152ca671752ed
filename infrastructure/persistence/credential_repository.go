package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"instagram-feed/domain/model"
)

// CredentialRepository stores one credential row per platform on PostgreSQL.
type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) GetCredential(ctx context.Context, platform string) (*model.Credential, error) {
	if r.db == nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT access_token, kind, issued_at, expires_at, subject_account_id FROM instagram_credentials WHERE platform=$1`, platform)
	return scanCredential(row)
}

func (r *CredentialRepository) UpsertCredential(ctx context.Context, platform string, cred *model.Credential) error {
	if r.db == nil {
		return nil
	}
	q := `INSERT INTO instagram_credentials (platform, subject_account_id, access_token, kind, issued_at, expires_at, updated_at)
          VALUES ($1,$2,$3,$4,$5,$6,$7)
          ON CONFLICT (platform) DO UPDATE SET
            subject_account_id=EXCLUDED.subject_account_id,
            access_token=EXCLUDED.access_token,
            kind=EXCLUDED.kind,
            issued_at=EXCLUDED.issued_at,
            expires_at=EXCLUDED.expires_at,
            updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, platform, cred.SubjectAccountID, cred.Value, string(cred.Kind), cred.IssuedAt.UTC(), nullTime(cred.ExpiresAt), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert instagram_credentials: %w", err)
	}
	return nil
}

func (r *CredentialRepository) DeleteCredential(ctx context.Context, platform string) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM instagram_credentials WHERE platform=$1`, platform); err != nil {
		return fmt.Errorf("delete instagram_credentials: %w", err)
	}
	return nil
}

// scanCredential maps a credential row; no row yields (nil, nil).
func scanCredential(row *sql.Row) (*model.Credential, error) {
	cred := &model.Credential{}
	var kind string
	var exp sql.NullTime
	if err := row.Scan(&cred.Value, &kind, &cred.IssuedAt, &exp, &cred.SubjectAccountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	cred.Kind = model.CredentialKind(kind)
	if exp.Valid {
		t := exp.Time
		cred.ExpiresAt = &t
	}
	return cred, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
