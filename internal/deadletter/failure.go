package deadletter

import "fmt"

// Kind tags a failure with how the pipeline should treat it.
type Kind string

const (
	KindConfigMissing     Kind = "ConfigMissing"
	KindConfigInvalid     Kind = "ConfigInvalid"
	KindFetchError        Kind = "FetchError"
	KindUnsupportedSource Kind = "UnsupportedSource"
	KindSourceError       Kind = "SourceError"
	KindNormalize         Kind = "Normalize"
	KindSinceFilter       Kind = "SinceFilter"
	KindValidate          Kind = "Validate"
	KindWriteError        Kind = "WriteError"
)

// Failure is one structured rejection: a user-facing message, a diagnostic
// message and free-form context (source id, offending value, path ...).
type Failure struct {
	Kind        Kind
	UserMessage string
	LogMessage  string
	Context     map[string]any
}

func New(kind Kind, userMsg, logMsg string) *Failure {
	return &Failure{Kind: kind, UserMessage: userMsg, LogMessage: logMsg}
}

// With attaches one context value and returns the failure for chaining.
func (f *Failure) With(key string, value any) *Failure {
	if f.Context == nil {
		f.Context = make(map[string]any)
	}
	f.Context[key] = value
	return f
}

func (f *Failure) Error() string {
	if f.LogMessage == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.UserMessage)
	}
	return fmt.Sprintf("%s: %s (%s)", f.Kind, f.UserMessage, f.LogMessage)
}

// Fatal reports whether the failure aborts the whole run before collection.
func (f *Failure) Fatal() bool {
	return f.Kind == KindConfigMissing || f.Kind == KindConfigInvalid
}

// Loggable reports whether the failure belongs in the deadletter sink.
// SinceFilter is an expected filtering outcome, not an error.
func (f *Failure) Loggable() bool {
	return f.Kind != KindSinceFilter
}
