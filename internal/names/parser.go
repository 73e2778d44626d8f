// Package names splits free-text staff names into their components and
// renders them back for display.
package names

import "strings"

// Parsed holds the components of a person's name. Missing parts are empty.
type Parsed struct {
	Title      string `json:"title"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Suffix     string `json:"suffix"`
}

// Order matters: the first matching entry wins.
var titles = []string{
	"Dr.", "Dr",
	"Professor", "Prof.", "Prof",
	"Mr.", "Mr",
	"Mrs.", "Mrs",
	"Ms.", "Ms",
	"Miss",
	"Rev.", "Rev",
	"Hon.", "Hon",
	"Sir",
	"Lady",
	"Capt.", "Capt", "Captain",
	"Lt.", "Lt", "Lieutenant",
	"Sgt.", "Sgt", "Sergeant",
	"Col.", "Col", "Colonel",
	"Dean", "Coach", "Director",
}

var suffixes = []string{
	"Jr.", "Jr",
	"Sr.", "Sr",
	"I", "II", "III", "IV", "V",
	"Ph.D.", "PhD", "Ph.D",
	"M.D.", "MD", "M.D",
	"J.D.", "JD", "J.D",
	"DDS", "D.D.S.", "D.D.S",
	"MBA", "M.B.A.", "M.B.A",
	"CPA", "C.P.A.", "C.P.A",
	"Esq.", "Esq",
	"R.N.", "RN",
	"B.A.", "BA",
	"B.S.", "BS",
	"M.A.", "MA",
	"M.S.", "MS",
}

// Lowercase particles that join a surname ("van Berg", "de la").
var compoundPrefixes = map[string]bool{
	"van": true, "von": true, "de": true, "del": true, "della": true,
	"der": true, "den": true, "da": true, "las": true, "los": true,
	"la": true, "le": true, "el": true, "st": true, "o": true,
	"mc": true, "mac": true,
}

// Parse splits a full name. It never fails; unrecognised input degrades to
// a best-effort split on whitespace.
func Parse(fullName string) Parsed {
	var p Parsed
	name := strings.TrimSpace(fullName)
	if name == "" {
		return p
	}

	name = p.takeTitle(name)
	name = p.takeSuffix(name)

	parts := strings.Fields(name)
	switch n := len(parts); {
	case n == 0:
		return p
	case n == 1:
		p.LastName = parts[0]
	case n == 2:
		p.FirstName, p.LastName = parts[0], parts[1]
	default:
		p.FirstName = parts[0]
		p.LastName = parts[n-1]
		p.MiddleName = strings.Join(parts[1:n-1], " ")
		p.joinCompoundSurname()
	}
	return p
}

func (p *Parsed) takeTitle(name string) string {
	for _, t := range titles {
		if strings.HasPrefix(name, t+" ") {
			p.Title = t
			return strings.TrimSpace(name[len(t)+1:])
		}
	}
	return name
}

func (p *Parsed) takeSuffix(name string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(name, " "+s) {
			p.Suffix = s
			return trimSeparators(strings.TrimSuffix(name, " "+s))
		}
		if i := commaSuffixIndex(name, s); i >= 0 {
			p.Suffix = s
			return trimSeparators(name[:i] + name[i+len(", "+s):])
		}
	}
	return name
}

// trimSeparators drops the comma left behind by "Doe, Ph.D.".
func trimSeparators(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ","))
}

// commaSuffixIndex finds ", "+s as a whole token so "Smith, III" is not
// mistaken for suffix "I".
func commaSuffixIndex(name, s string) int {
	needle := ", " + s
	from := 0
	for {
		i := strings.Index(name[from:], needle)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(needle)
		if end == len(name) || name[end] == ' ' || name[end] == ',' {
			return i
		}
		from = i + 1
	}
}

func (p *Parsed) joinCompoundSurname() {
	mid := strings.TrimSpace(p.MiddleName)
	if isInitial(mid) || strings.Contains(mid, " ") {
		return
	}
	if compoundPrefixes[strings.ToLower(mid)] {
		p.LastName = mid + " " + p.LastName
		p.MiddleName = ""
	}
}

// isInitial matches "H" or "H.".
func isInitial(s string) bool {
	return len(s) == 1 || (len(s) == 2 && s[1] == '.')
}
