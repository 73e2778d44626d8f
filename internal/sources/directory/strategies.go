package directory

import (
	"context"
	"regexp"
	"strings"

	"schooldash/internal/domain"
)

// match is what one strategy found. Either Staff or School is set; pattern
// is the email pattern that found Staff.
type match struct {
	Staff     []domain.StaffRecord
	School    *domain.DirectorySchool
	MatchedBy string
	pattern   string
}

// strategy looks d up one way. A nil match with a nil error means "try the
// next one".
type strategy func(ctx context.Context, q *queries, d string) (*match, error)

// strategies run in order until one matches.
var strategies = []strategy{
	matchExactEmail,
	matchFuzzyEmail,
	matchSchoolName,
}

var institutionWordRe = regexp.MustCompile(`(?i)\b(university|college)\b`)

func matchExactEmail(ctx context.Context, q *queries, d string) (*match, error) {
	pattern := "%@" + escapeLike(d)
	staff, err := q.staffByEmailPattern(ctx, pattern)
	if err != nil || len(staff) == 0 {
		return nil, err
	}
	return &match{Staff: staff, MatchedBy: "email", pattern: pattern}, nil
}

func matchFuzzyEmail(ctx context.Context, q *queries, d string) (*match, error) {
	for _, pattern := range emailVariations(d) {
		staff, err := q.staffByEmailPattern(ctx, pattern)
		if err != nil {
			return nil, err
		}
		if len(staff) > 0 {
			return &match{Staff: staff, MatchedBy: "fuzzy:" + pattern, pattern: pattern}, nil
		}
	}
	return nil, nil
}

func matchSchoolName(ctx context.Context, q *queries, d string) (*match, error) {
	s, err := q.schoolByDomain(ctx, d)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return &match{School: s, MatchedBy: "school_domain"}, nil
	}
	for _, name := range schoolNameCandidates(d) {
		s, err := q.schoolByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return &match{School: s, MatchedBy: "school_name:" + name}, nil
		}
	}
	return nil, nil
}

// emailVariations lists the LIKE patterns tried against staff emails when no
// address ends with the exact domain.
func emailVariations(d string) []string {
	base := d
	if i := strings.Index(d, "."); i >= 0 {
		base = d[:i]
	}
	if base == "" {
		return nil
	}
	short := base
	if len(short) > 3 {
		short = short[:3]
	}
	base, short = escapeLike(base), escapeLike(short)
	var out []string
	seen := map[string]bool{}
	for _, v := range []string{"%" + base + "%", "%u" + base + "%", "%" + short + "%"} {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// schoolNameCandidates derives names to look a school up by, most specific
// first.
func schoolNameCandidates(d string) []string {
	name := domain.SchoolNameFromDomain(d)
	if name == "" {
		return nil
	}
	out := []string{name}
	stripped := strings.Join(strings.Fields(institutionWordRe.ReplaceAllString(name, " ")), " ")
	if stripped != "" && !strings.EqualFold(stripped, name) {
		out = append(out, stripped)
	}
	return out
}

// dominantSchool picks the school most of the staff are attached to. Ties go
// to the first school reaching the winning count in association order.
func dominantSchool(assocs []association) (int64, bool) {
	counts := map[int64]int{}
	var best int64
	bestCount := 0
	for _, a := range assocs {
		counts[a.SchoolID]++
		if counts[a.SchoolID] > bestCount {
			best, bestCount = a.SchoolID, counts[a.SchoolID]
		}
	}
	return best, bestCount > 0
}

// resolve runs the strategies and expands the winner to the school's full
// roster. found is false when nothing matched.
func resolve(ctx context.Context, q *queries, d string) (data domain.DirectoryData, found bool, err error) {
	var m *match
	for _, try := range strategies {
		if m, err = try(ctx, q, d); err != nil {
			return data, false, err
		}
		if m != nil {
			break
		}
	}
	if m == nil {
		return data, false, nil
	}

	school := m.School
	if school == nil {
		assocs, err := q.associations(ctx, m.pattern)
		if err != nil {
			return data, false, err
		}
		schoolID, ok := dominantSchool(assocs)
		if !ok {
			// Staff matched but none is attached to a school.
			return domain.DirectoryData{Staff: m.Staff, MatchedBy: m.MatchedBy}, true, nil
		}
		if school, err = q.school(ctx, schoolID); err != nil {
			return data, false, err
		}
		if school == nil {
			school = &domain.DirectorySchool{ID: schoolID}
		}
	}

	roster, err := q.roster(ctx, school.ID)
	if err != nil {
		return data, false, err
	}
	return domain.DirectoryData{School: school, Staff: roster, MatchedBy: m.MatchedBy}, true, nil
}
