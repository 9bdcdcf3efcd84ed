// Package ui provides colored terminal output helpers for the CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	stepColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgBlue)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// center pads text on the left so it sits in the middle of width. Text
// wider than width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}

// Header prints a banner for the start of a run.
func Header(text string) {
	line := strings.Repeat("=", headerWidth)
	fmt.Println()
	headerColor.Println(line)
	headerColor.Println(center(text, headerWidth))
	headerColor.Println(line)
}

// Step prints a numbered progress step.
func Step(current, total int, text string) {
	stepColor.Printf("[%d/%d] ", current, total)
	fmt.Println(text)
}

// Success prints a green confirmation line.
func Success(text string) {
	successColor.Printf("✓ %s\n", text)
}

// Info prints a neutral status line.
func Info(text string) {
	infoColor.Printf("• %s\n", text)
}

// Warning prints a yellow warning line.
func Warning(text string) {
	warningColor.Printf("! %s\n", text)
}

// Error prints a red error line.
func Error(text string) {
	errorColor.Printf("✗ %s\n", text)
}

// BlueText returns text wrapped in blue color codes.
func BlueText(text string) string {
	return infoColor.Sprint(text)
}

// YellowText returns text wrapped in yellow color codes.
func YellowText(text string) string {
	return warningColor.Sprint(text)
}
