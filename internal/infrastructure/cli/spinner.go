package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner animates on stderr while the completion is in flight.
type Spinner struct {
	frames   []string
	interval time.Duration
	writer   io.Writer
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		writer:   w,
	}
}

// Start begins the spinner animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.stopChan)
}

func (s *Spinner) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for idx := 0; ; idx++ {
		fmt.Fprintf(s.writer, "\r%s ", s.frames[idx%len(s.frames)])
		select {
		case <-stop:
			fmt.Fprint(s.writer, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
}
