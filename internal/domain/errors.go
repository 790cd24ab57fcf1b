package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindInvalidCommand          ErrorKind = "invalid command"
	KindRetrievalRequestFailed  ErrorKind = "retrieval request failed"
	KindCompletionRequestFailed ErrorKind = "completion request failed"
	KindStreamTransport         ErrorKind = "stream transport error"
	KindEncoding                ErrorKind = "encoding error"
	KindDecode                  ErrorKind = "decode error"
)

// Stage names the pipeline step that produced a failure.
type Stage string

const (
	StageValidate Stage = "validate"
	StageRetrieve Stage = "retrieve"
	StageComplete Stage = "complete"
	StageStream   Stage = "stream"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidCommand          = &Error{Kind: KindInvalidCommand}
	ErrRetrievalRequestFailed  = &Error{Kind: KindRetrievalRequestFailed}
	ErrCompletionRequestFailed = &Error{Kind: KindCompletionRequestFailed}
	ErrStreamTransport         = &Error{Kind: KindStreamTransport}
	ErrEncoding                = &Error{Kind: KindEncoding}
	ErrDecode                  = &Error{Kind: KindDecode}
)

// Error is a classified pipeline failure. Stage is empty until the orchestrator annotates it.
type Error struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

// NewError builds an unannotated failure of the given kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds an unannotated failure with a formatted cause.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Stage != "" {
		msg = string(e.Stage) + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can compare against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithStage annotates err with the stage that produced it. The kind is never changed;
// errors that were not classified yet are tagged with fallback.
func WithStage(err error, stage Stage, fallback ErrorKind) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		annotated := *perr
		if annotated.Stage == "" {
			annotated.Stage = stage
		}
		return &annotated
	}
	return &Error{Kind: fallback, Stage: stage, Err: err}
}

// KindOf returns the kind of a classified failure, or "" for anything else.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ""
}
