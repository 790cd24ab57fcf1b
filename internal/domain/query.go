package domain

import "context"

// OutputMode selects how streamed completion fragments are aggregated.
type OutputMode string

const (
	// ModeConcat joins every fragment into one trimmed answer.
	ModeConcat OutputMode = "concat"
	// ModeSections turns every fragment into its own labeled section.
	ModeSections OutputMode = "sections"
)

// Valid reports whether the mode is one of the known modes.
func (m OutputMode) Valid() bool {
	return m == ModeConcat || m == ModeSections
}

// QueryRequest captures one invocation of the named operation as delivered by the host.
type QueryRequest struct {
	Context context.Context
	Command string
	Args    []string

	// InvocationID correlates logs and history. Generated when empty.
	InvocationID string

	// Mode overrides the configured output mode when set.
	Mode OutputMode
	// Retrieve overrides the configured retrieval toggle when non-nil.
	Retrieve *bool
	// StreamWriter receives fragments as they are decoded. Optional.
	StreamWriter StreamWriter
}

// Range is a half-open byte span [Start, End).
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Section is one labeled output section returned to the host.
type Section struct {
	Label string `json:"label" yaml:"label"`
	Range Range  `json:"range" yaml:"range"`
}

// CommandOutput is the terminal artifact of a successful invocation.
type CommandOutput struct {
	Text     string    `json:"text"`
	Sections []Section `json:"sections"`
}

// QueryService exposes the use-case boundary for handling a query.
type QueryService interface {
	Run(QueryRequest) (CommandOutput, error)
}
