package analysis

import "testing"

func TestStripComments(t *testing.T) {
	t.Parallel()

	src := `int x = 1; // trailing
/* block
spanning lines */ int y = 2;`
	got := StripComments(src)
	if want := "int x = 1; \n int y = 2;"; got != want {
		t.Errorf("StripComments() = %q, want %q", got, want)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "int   x\t=\n1;", "int x = 1;"},
		{"removes comments", "x(); // call\ny();", "x(); y();"},
		{"trims", "  x  ", "x"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFoldAccents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"límite", "limite"},
		{"comprobación", "comprobacion"},
		{"no accents", "no accents"},
		{"", ""},
	}

	for _, tt := range tests {
		tt := tt
		if got := FoldAccents(tt.in); got != tt.want {
			t.Errorf("FoldAccents(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchFormMatchesAccentedComment(t *testing.T) {
	t.Parallel()

	// Normalization strips the comment; folding and lowercasing canonicalize
	// the rest.
	src := "cc.setSpeedSet(80); // respeta el LÍMITE configurado"
	if got, want := searchForm(src), "cc.setspeedset(80);"; got != want {
		t.Errorf("searchForm() = %q, want %q", got, want)
	}
}
