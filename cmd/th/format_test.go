package main

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is way too long for the limit", 15, "this is way ..."},
		{"abc", 3, "abc"},
	}
	for _, tt := range tests {
		got := truncate(tt.input, tt.maxLen)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percentage float64
		width      int
		want       string
	}{
		{0, 4, "[----]"},
		{50, 4, "[##--]"},
		{100, 4, "[####]"},
		{150, 4, "[####]"},
		{-10, 4, "[----]"},
		{25, 8, "[##------]"},
	}
	for _, tt := range tests {
		got := progressBar(tt.percentage, tt.width)
		if got != tt.want {
			t.Errorf("progressBar(%v, %d) = %q, want %q", tt.percentage, tt.width, got, tt.want)
		}
	}
}
