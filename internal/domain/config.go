package domain

// Config mirrors ~/.rag/config.yaml. Every leaf can be overridden from the environment
// with the RAG_ prefix, e.g. RAG_COMPLETION_URL or RAG_RETRIEVAL_ENABLED.
type Config struct {
	ConfigFormatVersion string             `yaml:"config_format_version"`
	Completion          CompletionSettings `yaml:"completion"`
	Retrieval           RetrievalSettings  `yaml:"retrieval"`
	Output              OutputSettings     `yaml:"output"`
	Stream              StreamSettings     `yaml:"stream"`
	History             HistorySettings    `yaml:"history"`
	Logging             LoggingSettings    `yaml:"logging"`
	TimeoutSeconds      int                `yaml:"timeout"`
}

// CompletionSettings describes the streaming chat-completion endpoint and payload constants.
type CompletionSettings struct {
	URL         string  `yaml:"url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	// SystemPrompt is used when no retrieved context is available.
	SystemPrompt string `yaml:"system_prompt"`
	// ContextPreamble is prepended to the retrieved context to form the system prompt.
	ContextPreamble string `yaml:"context_preamble"`
}

// RetrievalSettings describes the context-retrieval endpoint.
type RetrievalSettings struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
}

// OutputSettings selects the default aggregation mode.
type OutputSettings struct {
	Mode OutputMode `yaml:"mode"`
}

// StreamSettings controls how transport chunks are framed into JSON objects.
type StreamSettings struct {
	Framing Framing `yaml:"framing"`
}

// HistorySettings configures the optional invocation log.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingSettings configures structured logging.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Framing selects the stream framing strategy.
type Framing string

const (
	// FramingObject reassembles JSON objects across transport chunks.
	FramingObject Framing = "object"
	// FramingChunk treats every transport chunk as exactly one JSON object.
	FramingChunk Framing = "chunk"
)

// Valid reports whether the framing is one of the known strategies.
func (f Framing) Valid() bool {
	return f == FramingObject || f == FramingChunk
}
