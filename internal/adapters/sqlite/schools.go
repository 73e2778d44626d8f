package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"schooldash/internal/domain"
	"schooldash/internal/ports"
)

var _ ports.Store = (*Store)(nil)

const schoolColumns = `id, domain, school_name, directory_school_id, staff_count, order_count, order_total,
	email_count, open_rate, click_rate, order_rate, raw_data, last_updated, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchool(row rowScanner) (domain.SchoolSnapshot, error) {
	var (
		s           domain.SchoolSnapshot
		dirID       sql.NullInt64
		total, raw  string
		updated, ca string
	)
	err := row.Scan(&s.ID, &s.Domain, &s.SchoolName, &dirID, &s.StaffCount, &s.OrderCount, &total,
		&s.EmailCount, &s.OpenRate, &s.ClickRate, &s.OrderRate, &raw, &updated, &ca)
	if err != nil {
		return s, err
	}
	if dirID.Valid {
		id := dirID.Int64
		s.DirectorySchoolID = &id
	}
	if s.OrderTotal, err = decimal.NewFromString(total); err != nil {
		return s, fmt.Errorf("order_total %q: %w", total, err)
	}
	if err := json.Unmarshal([]byte(raw), &s.RawData); err != nil {
		return s, fmt.Errorf("raw_data: %w", err)
	}
	if s.LastUpdated, err = parseTime(updated); err != nil {
		return s, err
	}
	if s.CreatedAt, err = parseTime(ca); err != nil {
		return s, err
	}
	return s, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t, nil
}

func (s *Store) CreateSchool(ctx context.Context, domainName, schoolName string, now time.Time) (domain.SchoolSnapshot, error) {
	ts := formatTime(now)
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO schools (domain, school_name, last_updated, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (domain) DO NOTHING
	`, strings.ToLower(domainName), schoolName, ts, ts)
	if err != nil {
		return domain.SchoolSnapshot{}, fmt.Errorf("insert school: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.SchoolSnapshot{}, domain.ErrAlreadyExists
	}
	_, snap, err := s.GetSchool(ctx, domainName)
	return snap, err
}

func (s *Store) GetSchool(ctx context.Context, domainName string) (bool, domain.SchoolSnapshot, error) {
	snap, err := scanSchool(s.DB.QueryRowContext(ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE domain = ?`, strings.ToLower(domainName)))
	if errors.Is(err, sql.ErrNoRows) {
		return false, snap, nil
	}
	if err != nil {
		return false, snap, fmt.Errorf("get school: %w", err)
	}
	return true, snap, nil
}

func (s *Store) ListSchools(ctx context.Context) ([]domain.SchoolSnapshot, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+schoolColumns+` FROM schools ORDER BY school_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

func (s *Store) UpdateSummary(ctx context.Context, domainName string, u domain.SummaryUpdate, raw domain.RawData, now time.Time) error {
	blob, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode raw data: %w", err)
	}
	var total *string
	if u.OrderTotal != nil {
		v := u.OrderTotal.StringFixed(2)
		total = &v
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE schools SET
			staff_count         = COALESCE(?, staff_count),
			directory_school_id = COALESCE(?, directory_school_id),
			order_count         = COALESCE(?, order_count),
			order_total         = COALESCE(?, order_total),
			email_count         = COALESCE(?, email_count),
			open_rate           = COALESCE(?, open_rate),
			click_rate          = COALESCE(?, click_rate),
			order_rate          = COALESCE(?, order_rate),
			raw_data            = ?,
			last_updated        = ?
		WHERE domain = ?
	`, u.StaffCount, u.DirectorySchoolID, u.OrderCount, total, u.EmailCount,
		u.OpenRate, u.ClickRate, u.OrderRate, string(blob), formatTime(now), strings.ToLower(domainName))
	if err != nil {
		return fmt.Errorf("update school summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSchool(ctx context.Context, domainName string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM schools WHERE domain = ?`, strings.ToLower(domainName))
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
