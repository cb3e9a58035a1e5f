package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress is a terminal progress indicator: a spinner when the amount of
// work is unknown, a counting bar otherwise. A nil *Progress ignores every
// call.
type Progress struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
	mu     sync.Mutex
}

// NewSpinner starts a spinner labelled with description.
func NewSpinner(writer io.Writer, description string) *Progress {
	return newProgress(writer, -1, description)
}

// NewProgress starts a bar counting up to total.
func NewProgress(writer io.Writer, total int, description string) *Progress {
	return newProgress(writer, total, description)
}

func newProgress(writer io.Writer, total int, description string) *Progress {
	if writer == nil {
		writer = os.Stderr
	}
	p := &Progress{writer: writer}
	options := []progressbar.Option{
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan][bold]" + description + "[reset]"),
		progressbar.OptionThrottle(65 * time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	}
	if total < 0 {
		options = append(options, progressbar.OptionSpinnerType(14))
	} else {
		options = append(options,
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	p.bar = progressbar.NewOptions(total, options...)
	return p
}

// Describe replaces the label.
func (p *Progress) Describe(description string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Describe("[cyan][bold]" + description + "[reset]")
}

// Tick advances the indicator by one step.
func (p *Progress) Tick() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.bar.Add(1); err != nil {
		slog.Debug("Failed to update progress", "error", err)
	}
}

// Set moves a counting bar to done of total, resizing it when total changed.
func (p *Progress) Set(done, total int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if int64(total) != p.bar.GetMax64() {
		p.bar.ChangeMax(total)
	}
	if err := p.bar.Set(done); err != nil {
		slog.Debug("Failed to update progress", "error", err)
	}
}

// Finish completes the indicator.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.bar.Finish(); err != nil {
		slog.Debug("Failed to finish progress", "error", err)
	}
}
