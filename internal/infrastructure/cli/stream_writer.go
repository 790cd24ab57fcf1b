package cli

import (
	"fmt"
	"io"
)

// streamWriter prints fragments as they arrive, on one line.
type streamWriter struct {
	out     io.Writer
	written bool
}

// NewStreamWriter builds a streamWriter for stdout.
func NewStreamWriter(out io.Writer) *streamWriter {
	return &streamWriter{out: out}
}

func (s *streamWriter) WriteChunk(text string) {
	if text == "" {
		return
	}
	s.written = true
	fmt.Fprint(s.out, text)
}

// Wrote reports whether any fragment reached the terminal.
func (s *streamWriter) Wrote() bool {
	return s.written
}

// Done terminates the streamed line.
func (s *streamWriter) Done() {
	if s.written {
		fmt.Fprintln(s.out)
	}
}
