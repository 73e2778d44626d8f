package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"schooldash/internal/domain"
)

type association struct {
	SchoolID int64
	StaffID  int64
}

// queries runs the directory statements against one prefixed schema. Every
// statement gets its own timeout.
type queries struct {
	db      *sql.DB
	timeout time.Duration

	schools     string
	staff       string
	schoolStaff string
}

func newQueries(db *sql.DB, prefix string, timeout time.Duration) *queries {
	return &queries{
		db:          db,
		timeout:     timeout,
		schools:     prefix + "schools",
		staff:       prefix + "staff",
		schoolStaff: prefix + "school_staff",
	}
}

func (q *queries) checkTables(ctx context.Context) error {
	for _, table := range []string{q.schools, q.staff, q.schoolStaff} {
		ctx, cancel := context.WithTimeout(ctx, q.timeout)
		var one int
		err := q.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1").Scan(&one)
		cancel()
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("table %s: %w", table, err)
		}
	}
	return nil
}

func (q *queries) staffColumns(alias string) string {
	cols := []string{"staff_id", "full_name", "first_name", "last_name", "title", "department", "email"}
	for i, c := range cols {
		if c == "staff_id" {
			cols[i] = alias + c
			continue
		}
		cols[i] = "COALESCE(" + alias + c + ", '')"
	}
	return strings.Join(cols, ", ")
}

func (q *queries) queryStaff(ctx context.Context, query string, args ...any) ([]domain.StaffRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.StaffRecord
	for rows.Next() {
		var s domain.StaffRecord
		if err := rows.Scan(&s.ID, &s.FullName, &s.FirstName, &s.LastName, &s.Title, &s.Department, &s.Email); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// likeEscape is the escape character for LIKE patterns. A backslash would
// need quoting differently in MySQL and SQLite string literals.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// escapeLike quotes s so it only matches itself inside a LIKE pattern.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (q *queries) staffByEmailPattern(ctx context.Context, pattern string) ([]domain.StaffRecord, error) {
	return q.queryStaff(ctx,
		`SELECT `+q.staffColumns("")+` FROM `+q.staff+`
		 WHERE LOWER(email) LIKE ? ESCAPE '`+likeEscape+`'
		 ORDER BY staff_id`,
		strings.ToLower(pattern),
	)
}

func (q *queries) roster(ctx context.Context, schoolID int64) ([]domain.StaffRecord, error) {
	return q.queryStaff(ctx,
		`SELECT `+q.staffColumns("s.")+` FROM `+q.staff+` s
		 JOIN `+q.schoolStaff+` ss ON s.staff_id = ss.staff_id
		 WHERE ss.school_id = ?
		 ORDER BY s.staff_id`,
		schoolID,
	)
}

// associations lists the school links of every staff member whose email
// matches pattern. The staff set is resolved inside the statement, so its
// size is not bounded by placeholder limits.
func (q *queries) associations(ctx context.Context, pattern string) ([]association, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	rows, err := q.db.QueryContext(ctx,
		`SELECT school_id, staff_id FROM `+q.schoolStaff+`
		 WHERE staff_id IN (
			SELECT staff_id FROM `+q.staff+` WHERE LOWER(email) LIKE ? ESCAPE '`+likeEscape+`'
		 )
		 ORDER BY staff_id, school_id`,
		strings.ToLower(pattern),
	)
	if err != nil {
		return nil, fmt.Errorf("query school associations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []association
	for rows.Next() {
		var a association
		if err := rows.Scan(&a.SchoolID, &a.StaffID); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *queries) querySchool(ctx context.Context, where string, args ...any) (*domain.DirectorySchool, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	var s domain.DirectorySchool
	err := q.db.QueryRowContext(ctx,
		`SELECT school_id, COALESCE(school_name, ''), COALESCE(school_domain, ''), COALESCE(city, ''), COALESCE(state, '')
		 FROM `+q.schools+` WHERE `+where+` ORDER BY school_id LIMIT 1`,
		args...,
	).Scan(&s.ID, &s.Name, &s.Domain, &s.City, &s.State)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query school: %w", err)
	}
	return &s, nil
}

func (q *queries) school(ctx context.Context, id int64) (*domain.DirectorySchool, error) {
	return q.querySchool(ctx, "school_id = ?", id)
}

func (q *queries) schoolByDomain(ctx context.Context, d string) (*domain.DirectorySchool, error) {
	return q.querySchool(ctx, "LOWER(school_domain) = ?", strings.ToLower(d))
}

func (q *queries) schoolByName(ctx context.Context, name string) (*domain.DirectorySchool, error) {
	return q.querySchool(ctx, "LOWER(school_name) LIKE ? ESCAPE '"+likeEscape+"'", "%"+escapeLike(strings.ToLower(name))+"%")
}
