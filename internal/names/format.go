package names

import "strings"

type FormatOptions struct {
	ShowTitle         bool
	ShowMiddle        bool
	ShowSuffix        bool
	FirstNameFirst    bool
	LastNameUppercase bool
	MiddleInitialOnly bool
}

// DefaultFormat renders the formal form, e.g. "Prof. William H. Gates, III".
var DefaultFormat = FormatOptions{
	ShowTitle:      true,
	ShowMiddle:     true,
	ShowSuffix:     true,
	FirstNameFirst: true,
}

// Format renders p for display. With FirstNameFirst unset the result is
// "Last, First Middle".
func Format(p Parsed, opts FormatOptions) string {
	middle := ""
	if opts.ShowMiddle && p.MiddleName != "" {
		middle = p.MiddleName
		if opts.MiddleInitialOnly && len(middle) > 1 {
			middle = middle[:1] + "."
		}
	}
	last := p.LastName
	if opts.LastNameUppercase {
		last = strings.ToUpper(last)
	}

	var b strings.Builder
	if opts.ShowTitle && p.Title != "" {
		b.WriteString(p.Title + " ")
	}

	if opts.FirstNameFirst {
		switch {
		case p.FirstName != "":
			b.WriteString(p.FirstName)
			if middle != "" {
				b.WriteString(" " + middle)
			}
			if last != "" {
				b.WriteString(" " + last)
			}
		case last != "":
			b.WriteString(last)
		}
	} else {
		switch {
		case last != "":
			b.WriteString(last)
			if p.FirstName != "" || middle != "" {
				b.WriteString(",")
				if p.FirstName != "" {
					b.WriteString(" " + p.FirstName)
				}
				if middle != "" {
					b.WriteString(" " + middle)
				}
			}
		case p.FirstName != "":
			b.WriteString(p.FirstName)
			if middle != "" {
				b.WriteString(" " + middle)
			}
		}
	}

	if opts.ShowSuffix && p.Suffix != "" {
		b.WriteString(", " + p.Suffix)
	}
	return strings.TrimSpace(b.String())
}
