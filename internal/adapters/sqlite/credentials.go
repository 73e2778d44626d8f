package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"schooldash/internal/domain"
)

const credentialColumns = `service, api_key, api_secret, access_token, refresh_token, expires_at, additional_data, updated_at`

func scanCredentials(row rowScanner) (domain.Credentials, error) {
	var (
		c                domain.Credentials
		expires          sql.NullString
		extra, updatedAt string
	)
	if err := row.Scan(&c.Service, &c.APIKey, &c.APISecret, &c.AccessToken, &c.RefreshToken, &expires, &extra, &updatedAt); err != nil {
		return c, err
	}
	if expires.Valid && expires.String != "" {
		t, err := parseTime(expires.String)
		if err != nil {
			return c, err
		}
		c.ExpiresAt = &t
	}
	if err := json.Unmarshal([]byte(extra), &c.AdditionalData); err != nil {
		return c, fmt.Errorf("additional_data: %w", err)
	}
	t, err := parseTime(updatedAt)
	if err != nil {
		return c, err
	}
	c.UpdatedAt = t
	return c, nil
}

func (s *Store) GetCredentials(ctx context.Context, service string) (bool, domain.Credentials, error) {
	c, err := scanCredentials(s.DB.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM api_credentials WHERE service = ?`, service))
	if errors.Is(err, sql.ErrNoRows) {
		return false, c, nil
	}
	if err != nil {
		return false, c, fmt.Errorf("get credentials: %w", err)
	}
	return true, c, nil
}

// SaveCredentials upserts the row for c.Service, replacing every field.
func (s *Store) SaveCredentials(ctx context.Context, c domain.Credentials) error {
	extra := c.AdditionalData
	if extra == nil {
		extra = map[string]string{}
	}
	blob, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("encode additional data: %w", err)
	}
	var expires *string
	if c.ExpiresAt != nil {
		v := formatTime(*c.ExpiresAt)
		expires = &v
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO api_credentials (`+credentialColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (service) DO UPDATE SET
			api_key = excluded.api_key,
			api_secret = excluded.api_secret,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			additional_data = excluded.additional_data,
			updated_at = excluded.updated_at
	`, c.Service, c.APIKey, c.APISecret, c.AccessToken, c.RefreshToken, expires, string(blob), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *Store) ListCredentials(ctx context.Context) ([]domain.Credentials, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+credentialColumns+` FROM api_credentials ORDER BY service`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Credentials
	for rows.Next() {
		c, err := scanCredentials(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credentials: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
