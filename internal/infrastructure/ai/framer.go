package ai

import (
	"unicode/utf8"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// NewFramer returns the framing strategy for one stream.
func NewFramer(framing domain.Framing) ports.Framer {
	if framing == domain.FramingChunk {
		return &chunkFramer{}
	}
	return &objectFramer{}
}

// chunkFramer treats every transport chunk as one complete JSON object.
type chunkFramer struct{}

func (chunkFramer) Feed(chunk []byte) ([][]byte, error) {
	return [][]byte{clone(chunk)}, nil
}

func (chunkFramer) Flush() ([][]byte, error) {
	return nil, nil
}

// objectFramer buffers bytes across chunks and cuts complete top-level JSON objects.
// Scanning resumes where the previous Feed stopped.
type objectFramer struct {
	buf      []byte
	start    int
	pos      int
	depth    int
	inString bool
	escaped  bool

	// tail holds the leading bytes of a multi-byte rune split across chunks.
	tail []byte
}

func (f *objectFramer) Feed(chunk []byte) ([][]byte, error) {
	if err := f.checkEncoding(chunk); err != nil {
		return nil, err
	}
	f.buf = append(f.buf, chunk...)

	var frames [][]byte
	for f.pos < len(f.buf) {
		c := f.buf[f.pos]
		if f.depth == 0 {
			if isJSONSpace(c) {
				f.pos++
				continue
			}
			if c != '{' {
				// Not an object: hand the rest to the decoder so it reports the failure.
				frames = append(frames, clone(f.buf[f.pos:]))
				f.pos = len(f.buf)
				break
			}
			f.start = f.pos
		}

		switch {
		case f.inString:
			switch {
			case f.escaped:
				f.escaped = false
			case c == '\\':
				f.escaped = true
			case c == '"':
				f.inString = false
			}
		case c == '"':
			f.inString = true
		case c == '{' || c == '[':
			f.depth++
		case c == '}' || c == ']':
			f.depth--
			if f.depth == 0 {
				frames = append(frames, clone(f.buf[f.start:f.pos+1]))
			}
		}
		f.pos++
	}

	f.compact()
	return frames, nil
}

// Flush returns whatever incomplete object is still buffered at end-of-stream.
func (f *objectFramer) Flush() ([][]byte, error) {
	if len(f.tail) > 0 {
		return nil, domain.Errorf(domain.KindEncoding, "stream ended inside a multi-byte UTF-8 sequence")
	}
	var frames [][]byte
	if f.depth > 0 {
		frames = append(frames, clone(f.buf[f.start:]))
	}
	*f = objectFramer{}
	return frames, nil
}

func (f *objectFramer) compact() {
	if f.depth == 0 {
		f.buf = f.buf[:0]
		f.start, f.pos = 0, 0
		return
	}
	if f.start > 0 {
		f.buf = clone(f.buf[f.start:])
		f.pos -= f.start
		f.start = 0
	}
}

// checkEncoding rejects invalid UTF-8 as soon as it arrives. A rune cut at the end of
// the chunk is kept in tail and validated together with the next chunk.
func (f *objectFramer) checkEncoding(chunk []byte) error {
	data := chunk
	if len(f.tail) > 0 {
		data = append(f.tail, chunk...)
		f.tail = nil
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			if !utf8.FullRune(data[i:]) {
				f.tail = clone(data[i:])
				return nil
			}
			return domain.Errorf(domain.KindEncoding, "response chunk is not valid UTF-8 at byte %d", i)
		}
		i += size
	}
	return nil
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
