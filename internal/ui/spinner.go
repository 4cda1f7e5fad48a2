package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/trylock/viewer-sub003/internal/plan"
)

// Spinner displays an animated spinner with a message on stderr. It stays
// silent when stderr is not a terminal.
type Spinner struct {
	out     io.Writer
	tty     bool
	message string
	detail  string
	frames  []string
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	current int
	running bool
}

// Default spinner frames (dots style)
var defaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		out:     os.Stderr,
		tty:     stderrIsTerminal(),
		message: message,
		frames:  defaultFrames,
	}
}

// SetDetail replaces the muted text shown after the message.
func (s *Spinner) SetDetail(detail string) {
	s.mu.Lock()
	s.detail = detail
	s.mu.Unlock()
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tty || s.running {
		return
	}
	s.running = true
	s.done = make(chan struct{})

	s.wg.Add(1)
	go func(done <-chan struct{}) {
		defer s.wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
				s.mu.Lock()
				frame := s.frames[s.current%len(s.frames)]
				s.current++
				detail := s.detail
				s.mu.Unlock()
				fmt.Fprintf(s.out, "\r\033[K%s %s %s", Bold.Render(frame), s.message, Muted.Render(detail))
			}
		}
	}(s.done)
}

// Stop stops the spinner and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()
	s.wg.Wait()
}

// QueryProgress shows query execution on a spinner: the folder being
// listed and how many files were loaded so far.
type QueryProgress struct {
	spinner *Spinner

	mu      sync.Mutex
	folders int
	loaded  int
}

var _ plan.Progress = (*QueryProgress)(nil)

// NewQueryProgress creates a progress display for one query execution.
func NewQueryProgress() *QueryProgress {
	return &QueryProgress{spinner: NewSpinner("Searching")}
}

func (p *QueryProgress) BeginExecution() { p.spinner.Start() }
func (p *QueryProgress) EndExecution()   { p.spinner.Stop() }

func (p *QueryProgress) Folder(path string) {
	p.mu.Lock()
	p.folders++
	loaded := p.loaded
	p.mu.Unlock()
	p.spinner.SetDetail(fmt.Sprintf("%s (%d loaded)", path, loaded))
}

func (p *QueryProgress) BeginLoading(string) {}

func (p *QueryProgress) EndLoading(string) {
	p.mu.Lock()
	p.loaded++
	p.mu.Unlock()
}

// Counts returns the number of folders listed and files loaded.
func (p *QueryProgress) Counts() (folders, loaded int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.folders, p.loaded
}

// Counter displays a running count for operations of unknown length, e.g.
// indexing.
type Counter struct {
	out     io.Writer
	tty     bool
	message string
	current int
	mu      sync.Mutex
}

// NewCounter creates a counter that writes to stderr.
func NewCounter(message string) *Counter {
	return &Counter{out: os.Stderr, tty: stderrIsTerminal(), message: message}
}

// Increment increments the count by one.
func (c *Counter) Increment() {
	c.mu.Lock()
	c.current++
	current := c.current
	c.mu.Unlock()
	if c.tty {
		fmt.Fprintf(c.out, "\r%s %s", c.message, Muted.Render(fmt.Sprintf("(%d)", current)))
	}
}

// Done clears the counter line.
func (c *Counter) Done() {
	if c.tty {
		fmt.Fprint(c.out, "\r\033[K")
	}
}
