package format

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"Main St. 5", "Main St\\. 5"},
		{"a_b*c[d]", "a\\_b\\*c\\[d\\]"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := EscapeMarkdownV2(tc.in); got != tc.want {
			t.Errorf("EscapeMarkdownV2(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
