// Package ui provides terminal output helpers for the img2pdf CLI.
package ui

import (
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// InitUI sets the output streams and color mode.
func InitUI(stdout, stderr io.Writer, noColor bool) {
	out = stdout
	errOut = stderr

	if noColor {
		color.NoColor = true
	}
}
