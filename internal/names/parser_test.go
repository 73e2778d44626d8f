package names

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Parsed
	}{
		{"", Parsed{}},
		{"   ", Parsed{}},
		{"Smith", Parsed{LastName: "Smith"}},
		{"Jane Smith", Parsed{FirstName: "Jane", LastName: "Smith"}},
		{"Prof. William H. Gates III", Parsed{Title: "Prof.", FirstName: "William", MiddleName: "H.", LastName: "Gates", Suffix: "III"}},
		{"John van Berg", Parsed{FirstName: "John", LastName: "van Berg"}},
		{"Maria De Souza", Parsed{FirstName: "Maria", LastName: "De Souza"}},
		{"Mary O Brien", Parsed{FirstName: "Mary", MiddleName: "O", LastName: "Brien"}},
		{"John A Smith", Parsed{FirstName: "John", MiddleName: "A", LastName: "Smith"}},
		{"Mary Ann Lou Jones", Parsed{FirstName: "Mary", MiddleName: "Ann Lou", LastName: "Jones"}},
		{"Coach Tom Izzo", Parsed{Title: "Coach", FirstName: "Tom", LastName: "Izzo"}},
		{"Dr Jane Doe, Ph.D.", Parsed{Title: "Dr", FirstName: "Jane", LastName: "Doe", Suffix: "Ph.D."}},
		{"Robert Smith Jr.", Parsed{FirstName: "Robert", LastName: "Smith", Suffix: "Jr."}},
		{"Smith, III", Parsed{LastName: "Smith", Suffix: "III"}},
		{"  Dean   Ann   Lee  ", Parsed{Title: "Dean", FirstName: "Ann", LastName: "Lee"}},
		{"Director", Parsed{LastName: "Director"}},
	}
	for _, tc := range tests {
		got := Parse(tc.in)
		if got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseNeverLeaksTitleOrSuffix(t *testing.T) {
	got := Parse("Dr. Jones MD")
	if got.Title != "Dr." || got.Suffix != "MD" {
		t.Fatalf("unexpected title/suffix: %+v", got)
	}
	if got.LastName != "Jones" || got.FirstName != "" {
		t.Errorf("unexpected name parts: %+v", got)
	}
}

func TestFormat(t *testing.T) {
	p := Parse("Prof. William H. Gates III")

	tests := []struct {
		name string
		opts FormatOptions
		want string
	}{
		{"formal", DefaultFormat, "Prof. William H. Gates, III"},
		{"directory", FormatOptions{ShowTitle: true, ShowMiddle: true, ShowSuffix: true}, "Prof. Gates, William H., III"},
		{"casual", FormatOptions{ShowMiddle: true, FirstNameFirst: true}, "William H. Gates"},
		{"upper", FormatOptions{FirstNameFirst: true, LastNameUppercase: true}, "William GATES"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(p, tc.opts); got != tc.want {
				t.Errorf("Format = %q, want %q", got, tc.want)
			}
		})
	}

	initial := Format(Parse("Anna Maria Lopez"), FormatOptions{ShowMiddle: true, FirstNameFirst: true, MiddleInitialOnly: true})
	if initial != "Anna M. Lopez" {
		t.Errorf("middle initial = %q", initial)
	}
	if got := Format(Parse("Smith"), DefaultFormat); got != "Smith" {
		t.Errorf("last only = %q", got)
	}
}
