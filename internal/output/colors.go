package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Header  *color.Color
	Success *color.Color
	Error   *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Header:  color.New(color.FgCyan, color.Bold),
		Success: color.New(color.FgGreen),
		Error:   color.New(color.FgRed),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()

	scheme.Header.DisableColor()
	scheme.Success.DisableColor()
	scheme.Error.DisableColor()

	return scheme
}
