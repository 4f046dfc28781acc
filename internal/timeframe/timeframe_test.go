package timeframe

import "testing"

func TestParseFolded(t *testing.T) {
	cases := []struct {
		raw  string
		want Key
		ok   bool
	}{
		{"1mo", Mo1, true},
		{"1MO", Mo1, true},
		{"1Mo", Mo1, true},
		{"1m", M1, true},
		// "1M" folds onto the minute key; the month must be "1mo".
		{"1M", M1, true},
		{"4H", H4, true},
		{"1w", W1, true},
		{"2h", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseFolded(tc.raw)
		if ok != tc.ok {
			t.Fatalf("ParseFolded(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseFolded(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
