package domain

// StreamWriter receives partial answer text while a completion stream is consumed.
type StreamWriter interface {
	WriteChunk(text string)
	Done()
}
