package cmd

import (
	"io"
	"os"

	"github.com/rlegacy/launcher/internal/logging"
	"github.com/rlegacy/launcher/internal/progress"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// barWriter is where transfer bars are drawn. Bars go to stderr so piped
// stdout only carries log lines.
var barWriter io.Writer = os.Stderr

// barView is the part of a progress bar the renderer drives.
type barView interface {
	Set(percent int) error
	Clear() error
}

// newBarView returns the view for a new transfer, or nil when nothing should
// be drawn.
var newBarView = func() barView {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return newBar(barWriter)
}

// renderProgress applies events in order until the channel is closed. Log
// text is written to out, and a visible bar is cleared before each line so
// the two never share a terminal line.
func renderProgress(events <-chan progress.Event, out io.Writer) {
	var bar barView
	drawn := false
	clearBar := func() {
		if bar != nil && drawn {
			_ = bar.Clear()
			drawn = false
		}
	}

	for e := range events {
		if e.IsText {
			clearBar()
			_, _ = io.WriteString(out, e.Text)
			continue
		}
		if !e.Update.Visible {
			clearBar()
			bar = nil
			continue
		}
		if bar == nil {
			if bar = newBarView(); bar == nil {
				continue
			}
		}
		_ = bar.Set(int(e.Update.Fraction * 100))
		drawn = true
	}
	clearBar()
}

func newBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// withProgress runs fn on a background goroutine while the calling goroutine
// renders what it reports. Console log lines written meanwhile travel through
// the same queue, so they reach the terminal in order with the bar.
func withProgress[T any](fn func(progress.Sink) (T, error)) (T, error) {
	q := progress.NewQueue(64)
	out := logging.Console()
	restore := logging.SetConsole(q)

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer q.Close()
		v, err := fn(q)
		done <- result{v: v, err: err}
	}()

	renderProgress(q.Events(), out)
	restore()
	r := <-done
	return r.v, r.err
}
