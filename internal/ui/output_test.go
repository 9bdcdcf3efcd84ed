package ui

import (
	"strings"
	"testing"
)

func TestCenter(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{name: "pads short text", text: "Scan", width: 10, want: "   Scan"},
		{name: "exact fit unchanged", text: "Parsing", width: 7, want: "Parsing"},
		{name: "overlong text unchanged", text: "Parsing Broker Statements", width: 10, want: "Parsing Broker Statements"},
		{name: "odd remainder rounds down", text: "Go", width: 7, want: "  Go"},
		{name: "empty text", text: "", width: 4, want: "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := center(tt.text, tt.width); got != tt.want {
				t.Errorf("center(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestCenterFitsHeaderWidth(t *testing.T) {
	centered := center("Results", headerWidth)
	if !strings.HasSuffix(centered, "Results") {
		t.Errorf("center() = %q, padding must be on the left only", centered)
	}
	if len(centered) > headerWidth {
		t.Errorf("centered text length %d exceeds header width %d", len(centered), headerWidth)
	}
}

func TestSprintHelpers(t *testing.T) {
	if got := BlueText("cache.db"); !strings.Contains(got, "cache.db") {
		t.Errorf("BlueText() = %q, want the input text preserved", got)
	}
	if got := YellowText("3 dropped"); !strings.Contains(got, "3 dropped") {
		t.Errorf("YellowText() = %q, want the input text preserved", got)
	}
}

// The print helpers write straight to stdout; there is no output to assert
// on, but none of them may panic on ordinary input.
func TestPrintHelpers(t *testing.T) {
	Header("Parsing Broker Statements")
	Step(2, 3, "Extracting transactions")
	Success("Found 4 statement(s)")
	Info("Using cached results where available")
	Warning("Validator dropped 1 element(s)")
	Error("parse failed for feb.pdf")
}
