package main

import "testing"

func TestOpenDelims(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"print 1;", 0},
		{"if (true) {", 1},
		{"if (true) { print 1; }", 0},
		{"while (x <", 1},
		{"{ { }", 1},
		{`print "{";`, 0},
		{`print "unterminated {`, 0},
		{"// comment with { (\n", 0},
		{"print 1; // trailing {", 0},
	}
	for _, tt := range tests {
		if got := openDelims(tt.src); got != tt.want {
			t.Fatalf("openDelims(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}
