package datefmt

import "testing"

func TestEscapeLiteral(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"YYYY-MM-DD", "YYYY[-]MM[-]DD"},
		{"[birthday]-YYYY", "[birthday][-]YYYY"},
		{"YYYY (lunar)", "YYYY[ (]l[un]a[r)]"},
		{"YYYY (农历)", "YYYY[ (农历)]"},
		{"生日", "[生日]"},
		{"a]b", "a[\\]b]"},
		{"[ 1 YYYY", "[[ 1 ]YYYY"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := EscapeLiteral(tt.pattern); got != tt.want {
			t.Errorf("EscapeLiteral(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestRender_KeyExample(t *testing.T) {
	got, err := Render(Moment{}, "[birthday]-YYYY", date(2025, 5, 1))
	if err != nil {
		t.Fatal(err)
	}
	if got != "birthday-2025" {
		t.Errorf("got %q", got)
	}
}

func TestRender_LiteralOnlyPatternsAreStable(t *testing.T) {
	patterns := []string{
		"生日",
		"农历生日 -> 公历",
		"--(  )--",
		"[",
		"]",
		`\`,
		"[[",
		"0123 / 456",
		"$1$2 $3",
		`1\2`,
	}
	days := []int{1, 15, 28}
	for _, p := range patterns {
		for _, day := range days {
			got, err := Render(Moment{}, p, date(2024+day, day%12+1, day))
			if err != nil {
				t.Errorf("Render(%q): %v", p, err)
				continue
			}
			if got != p {
				t.Errorf("Render(%q) = %q", p, got)
			}
		}
	}
}

func TestRender_PunctuationIsNeverAToken(t *testing.T) {
	got, err := Render(Moment{}, "YYYY.MM.DD (Q)", date(2025, 11, 9))
	if err != nil {
		t.Fatal(err)
	}
	if got != "2025.11.09 (4)" {
		t.Errorf("got %q", got)
	}
}

func TestRender_BackslashInUserLiteralIsKept(t *testing.T) {
	got, err := Render(Moment{}, `[a\b]-YYYY`, date(2025, 5, 1))
	if err != nil {
		t.Fatal(err)
	}
	if got != `a\b-2025` {
		t.Errorf("got %q", got)
	}
}
