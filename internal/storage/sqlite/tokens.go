package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken blacklists a token id until its original expiry. The row
// outlives process restarts, which an in-memory set would not.
func (s *SQLiteStore) RevokeToken(ctx context.Context, jti string, expiresAt int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)",
		jti, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the jti is blacklisted and the
// blacklist entry has not yet expired.
func (s *SQLiteStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE jti = ? AND expires_at > ?",
		jti, time.Now().Unix(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}

// PurgeExpiredTokens drops blacklist rows past their expiry. Once the
// token itself has expired the blacklist entry is redundant.
func (s *SQLiteStore) PurgeExpiredTokens(ctx context.Context, now int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at <= ?",
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
