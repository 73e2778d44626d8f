package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"schooldash/internal/domain"
)

const schoolColumns = `id, domain, school_name, directory_school_id, staff_count, order_count, order_total::text,
	email_count, open_rate, click_rate, order_rate, raw_data, last_updated, created_at`

func scanSchool(row pgx.Row) (domain.SchoolSnapshot, error) {
	var (
		s     domain.SchoolSnapshot
		total string
		raw   []byte
	)
	err := row.Scan(&s.ID, &s.Domain, &s.SchoolName, &s.DirectorySchoolID, &s.StaffCount, &s.OrderCount, &total,
		&s.EmailCount, &s.OpenRate, &s.ClickRate, &s.OrderRate, &raw, &s.LastUpdated, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	if s.OrderTotal, err = decimal.NewFromString(total); err != nil {
		return s, fmt.Errorf("order_total %q: %w", total, err)
	}
	if err := json.Unmarshal(raw, &s.RawData); err != nil {
		return s, fmt.Errorf("raw_data: %w", err)
	}
	return s, nil
}

// SchoolRepository

func (db *DB) CreateSchool(ctx context.Context, domainName, schoolName string, now time.Time) (domain.SchoolSnapshot, error) {
	snap, err := scanSchool(db.Pool.QueryRow(ctx, `
		INSERT INTO schools (domain, school_name, last_updated, created_at)
		VALUES ($1, $2, $3, $3)
		RETURNING `+schoolColumns,
		strings.ToLower(domainName), schoolName, now))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return snap, domain.ErrAlreadyExists
	}
	if err != nil {
		return snap, fmt.Errorf("insert school: %w", err)
	}
	return snap, nil
}

func (db *DB) GetSchool(ctx context.Context, domainName string) (bool, domain.SchoolSnapshot, error) {
	snap, err := scanSchool(db.Pool.QueryRow(ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE domain = $1`, strings.ToLower(domainName)))
	if errors.Is(err, pgx.ErrNoRows) {
		return false, snap, nil
	}
	if err != nil {
		return false, snap, fmt.Errorf("get school: %w", err)
	}
	return true, snap, nil
}

func (db *DB) ListSchools(ctx context.Context) ([]domain.SchoolSnapshot, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+schoolColumns+` FROM schools ORDER BY school_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer rows.Close()

	var out []domain.SchoolSnapshot
	for rows.Next() {
		snap, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan school: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// UpdateSummary leaves a column alone when its parameter is NULL.
func (db *DB) UpdateSummary(ctx context.Context, domainName string, u domain.SummaryUpdate, raw domain.RawData, now time.Time) error {
	blob, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode raw data: %w", err)
	}
	var total *string
	if u.OrderTotal != nil {
		v := u.OrderTotal.StringFixed(2)
		total = &v
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE schools SET
			staff_count         = COALESCE($2::int, staff_count),
			directory_school_id = COALESCE($3::bigint, directory_school_id),
			order_count         = COALESCE($4::int, order_count),
			order_total         = COALESCE($5::numeric, order_total),
			email_count         = COALESCE($6::int, email_count),
			open_rate           = COALESCE($7::float8, open_rate),
			click_rate          = COALESCE($8::float8, click_rate),
			order_rate          = COALESCE($9::float8, order_rate),
			raw_data            = $10::jsonb,
			last_updated        = $11
		WHERE domain = $1
	`, strings.ToLower(domainName), u.StaffCount, u.DirectorySchoolID, u.OrderCount, total, u.EmailCount,
		u.OpenRate, u.ClickRate, u.OrderRate, string(blob), now)
	if err != nil {
		return fmt.Errorf("update school summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) DeleteSchool(ctx context.Context, domainName string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM schools WHERE domain = $1`, strings.ToLower(domainName))
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CredentialRepository

const credentialColumns = `service, api_key, api_secret, access_token, refresh_token, expires_at, additional_data, updated_at`

func scanCredentials(row pgx.Row) (domain.Credentials, error) {
	var (
		c     domain.Credentials
		extra []byte
	)
	if err := row.Scan(&c.Service, &c.APIKey, &c.APISecret, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &extra, &c.UpdatedAt); err != nil {
		return c, err
	}
	if err := json.Unmarshal(extra, &c.AdditionalData); err != nil {
		return c, fmt.Errorf("additional_data: %w", err)
	}
	return c, nil
}

func (db *DB) GetCredentials(ctx context.Context, service string) (bool, domain.Credentials, error) {
	c, err := scanCredentials(db.Pool.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM api_credentials WHERE service = $1`, service))
	if errors.Is(err, pgx.ErrNoRows) {
		return false, c, nil
	}
	if err != nil {
		return false, c, fmt.Errorf("get credentials: %w", err)
	}
	return true, c, nil
}

func (db *DB) SaveCredentials(ctx context.Context, c domain.Credentials) error {
	extra := c.AdditionalData
	if extra == nil {
		extra = map[string]string{}
	}
	blob, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("encode additional data: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO api_credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
		ON CONFLICT (service) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			api_secret = EXCLUDED.api_secret,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			additional_data = EXCLUDED.additional_data,
			updated_at = EXCLUDED.updated_at
	`, c.Service, c.APIKey, c.APISecret, c.AccessToken, c.RefreshToken, c.ExpiresAt, string(blob), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (db *DB) ListCredentials(ctx context.Context) ([]domain.Credentials, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+credentialColumns+` FROM api_credentials ORDER BY service`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

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
