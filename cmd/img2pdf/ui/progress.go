package ui

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar renders batch progress as a percentage.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a bar from 0 to 100 on stderr.
func NewProgressBar(description string) *ProgressBar {
	bar := progressbar.NewOptions(
		100,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(errOut),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(errOut, "\n")
		}),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Update moves the bar to percent and replaces its label.
func (p *ProgressBar) Update(percent int, label string) {
	p.bar.Describe(label)
	_ = p.bar.Set(percent)
}

// Finish completes the bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Abort erases the bar without filling it.
func (p *ProgressBar) Abort() {
	_ = p.bar.Clear()
}
