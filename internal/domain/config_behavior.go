package domain

import "time"

// RetrievalFor resolves whether context retrieval runs for one invocation.
// A per-request override wins over the configured default.
func (c *Config) RetrievalFor(override *bool) bool {
	if override != nil {
		return *override
	}
	return c.Retrieval.Enabled
}

// ModeFor resolves the aggregation mode for one invocation.
func (c *Config) ModeFor(override OutputMode) OutputMode {
	if override != "" {
		return override
	}
	if c.Output.Mode == "" {
		return ModeConcat
	}
	return c.Output.Mode
}

// FramingOrDefault returns the configured framing, falling back to object framing.
func (c *Config) FramingOrDefault() Framing {
	if c.Stream.Framing == "" {
		return FramingObject
	}
	return c.Stream.Framing
}

// Timeout returns the invocation timeout. Zero means no limit.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
