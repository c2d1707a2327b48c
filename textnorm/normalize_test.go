package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "only whitespace", in: " \n\t\r\n ", want: ""},
		{name: "newlines", in: "Hello\nWorld", want: "Hello World"},
		{name: "runs", in: "  a \t\t b\n\n\nc  ", want: "a b c"},
		{name: "unicode space", in: "a  b", want: "a b"},
		{name: "already clean", in: "one two", want: "one two"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"PDF page 1\n\nPDF page 2\f\vend",
		"tabs\tand   spaces \n mixed",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("\n \t") {
		t.Fatalf("expected blank")
	}
	if IsBlank(" x ") {
		t.Fatalf("expected non-blank")
	}
}
