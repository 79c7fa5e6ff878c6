// Package ui renders transient terminal feedback: a deferred spinner for
// operations that turn out slow, and byte progress for downloads. Output
// goes to stderr so stdout stays clean for the corrected command.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	// showDelay keeps fast operations free of flicker.
	showDelay = 100 * time.Millisecond
	// tickInterval advances the spinner frame.
	tickInterval = 100 * time.Millisecond
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows a message for operations that exceed showDelay. It stays
// invisible for fast operations, in quiet mode, and when stderr is not a
// terminal.
type Spinner struct {
	mu      sync.Mutex
	out     io.Writer
	start   time.Time
	quiet   bool
	shown   bool
	stopped bool
	msg     string
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner returns a spinner on stderr. quiet disables it entirely, as
// does a non-terminal stderr.
func NewSpinner(quiet bool) *Spinner {
	return newSpinner(os.Stderr, quiet || !stderrIsTerminal())
}

func newSpinner(out io.Writer, quiet bool) *Spinner {
	return &Spinner{out: out, start: time.Now(), quiet: quiet}
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetMessage updates the spinner text, starting the spinner if the
// operation has been running longer than showDelay.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiet || s.stopped {
		return
	}
	s.msg = msg
	if !s.shown && time.Since(s.start) > showDelay {
		s.shown = true
		s.stop = make(chan struct{})
		s.wg.Add(1)
		go s.tick()
	}
}

func (s *Spinner) tick() {
	defer s.wg.Done()
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	i := 0
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r\x1b[K%s %s", frames[i%len(frames)], s.msg)
			s.mu.Unlock()
			i++
		}
	}
}

// Finish stops and erases the spinner without printing anything.
func (s *Spinner) Finish() { s.finish("") }

// FinishWithMessage stops the spinner and prints msg, but only if the
// spinner actually became visible.
func (s *Spinner) FinishWithMessage(msg string) { s.finish(msg) }

func (s *Spinner) finish(msg string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		s.wg.Wait()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shown {
		fmt.Fprint(s.out, "\r\x1b[K")
		if msg != "" && !s.quiet {
			fmt.Fprintln(s.out, msg)
		}
	}
}

// IsShown reports whether the spinner ever became visible.
func (s *Spinner) IsShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

// DownloadProgress returns a transfer callback that renders byte progress
// through the spinner.
func DownloadProgress(s *Spinner, name string) func(done, total int64) {
	return func(done, total int64) {
		if total > 0 {
			s.SetMessage(fmt.Sprintf("Downloading %s... %.1f/%.1f MB", name, mb(done), mb(total)))
			return
		}
		s.SetMessage(fmt.Sprintf("Downloading %s... %.1f MB", name, mb(done)))
	}
}

func mb(n int64) float64 { return float64(n) / (1024 * 1024) }
