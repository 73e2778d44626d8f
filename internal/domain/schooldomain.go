package domain

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ldhLabel is one hostname label: letters, digits and inner hyphens.
var ldhLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NormalizeDomain cleans user input into a school email domain. A leading
// "@" is dropped; the rest must be a hostname made of LDH labels with a
// registrable name under a public suffix. Internationalized names are
// returned in their ASCII (punycode) form.
func NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "@")
	if d == "" {
		return "", ErrInvalidDomain
	}
	d, err := idna.Lookup.ToASCII(d)
	if err != nil || len(d) > 253 {
		return "", ErrInvalidDomain
	}
	for _, label := range strings.Split(d, ".") {
		if !ldhLabel.MatchString(label) {
			return "", ErrInvalidDomain
		}
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(d); err != nil {
		return "", ErrInvalidDomain
	}
	return d, nil
}

// SchoolNameFromDomain derives a display name from the label just left of
// the public suffix: "albion.edu" -> "Albion", "st-olaf.edu" -> "St Olaf".
func SchoolNameFromDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if d == "" {
		return ""
	}
	label := ""
	if suffix, _ := publicsuffix.PublicSuffix(d); suffix != "" && suffix != d {
		rest := strings.TrimSuffix(d, "."+suffix)
		label = rest[strings.LastIndex(rest, ".")+1:]
	}
	if label == "" {
		parts := strings.Split(d, ".")
		if len(parts) >= 2 {
			label = parts[len(parts)-2]
		} else {
			label = d
		}
	}
	label = strings.ReplaceAll(label, "-", " ")
	return cases.Title(language.English).String(label)
}
