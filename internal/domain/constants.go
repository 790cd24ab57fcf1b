package domain

import "time"

// Operation constants
const (
	// CommandName is the only operation name the query service accepts.
	CommandName = "rag"
	// EmptyQueryMessage is returned as normal output when no query text was given.
	EmptyQueryMessage = "Error: Query not provided. Please enter a prompt."
	// SectionsHeading is the output text accompanying sectioned results.
	SectionsHeading = "RAG API Response"
)

// Completion defaults
const (
	DefaultCompletionURL   = "http://127.0.0.1:8000/v1/chat/completions"
	DefaultRetrievalURL    = "http://127.0.0.1:8000/v1/retrieve"
	DefaultModelID         = "openai:gpt-4o"
	DefaultTemperature     = 0.1
	DefaultSystemPrompt    = "You are a helpful consultant."
	DefaultContextPreamble = "You are a helpful consultant. Answer the user's question using the following context:\n\n"
	DefaultCollection      = "default"
)

// Chat roles
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultTimeoutSeconds bounds a whole invocation from the CLI
	DefaultTimeoutSeconds = 120
	// DefaultProbeTimeout is the timeout for doctor endpoint probes
	DefaultProbeTimeout = 3 * time.Second
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
