// Package runreport collects the non-fatal warnings the pipeline
// produces (§7 of the spec) so the CLI, not the library, decides how
// loudly to surface them. Fatal errors are returned as Go errors built
// by Fatal, whose Kind KindOf recovers (via errors.As); they are never
// added to a Report.
package runreport

import (
	"errors"
	"fmt"
)

// Kind discriminates the error/warning taxonomy of §7.
type Kind int

const (
	SourceIoError Kind = iota
	PreprocessorError
	NoModuleFound
	MalformedPort
	MalformedParameter
	LibraryIoError
	LibraryParseWarning
	NoMatch
	AmbiguousMatch
	OutputIoError
)

func (k Kind) String() string {
	switch k {
	case SourceIoError:
		return "SourceIoError"
	case PreprocessorError:
		return "PreprocessorError"
	case NoModuleFound:
		return "NoModuleFound"
	case MalformedPort:
		return "MalformedPort"
	case MalformedParameter:
		return "MalformedParameter"
	case LibraryIoError:
		return "LibraryIoError"
	case LibraryParseWarning:
		return "LibraryParseWarning"
	case NoMatch:
		return "NoMatch"
	case AmbiguousMatch:
		return "AmbiguousMatch"
	case OutputIoError:
		return "OutputIoError"
	}
	return "UnknownKind"
}

// Fatal reports whether a Kind aborts the run per §7's propagation
// policy (SourceIoError, NoModuleFound, OutputIoError).
func (k Kind) Fatal() bool {
	switch k {
	case SourceIoError, NoModuleFound, OutputIoError:
		return true
	}
	return false
}

// Entry is one collected warning or informational note.
type Entry struct {
	Kind    Kind
	Message string
	Line    int // 0 if not applicable
	Col     int
}

func (e Entry) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.Message, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Report accumulates Entry values across preprocessor, parser, library,
// and matcher phases of a single run.
type Report struct {
	Entries []Entry
}

// New returns an empty Report.
func New() *Report { return &Report{} }

// Add records a non-fatal entry.
func (r *Report) Add(kind Kind, line, col int, format string, args ...interface{}) {
	r.Entries = append(r.Entries, Entry{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Col:     col,
	})
}

// Of returns every entry of the given kind, in encounter order.
func (r *Report) Of(kind Kind) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// fatalErr is the sentinel wrapped error type returned for a fatal Kind.
type fatalErr struct {
	kind Kind
	msg  string
}

func (e *fatalErr) Error() string { return fmt.Sprintf("%s: %s", e.kind, e.msg) }

// FatalKind returns the Kind carried by e. fatalErr has no Is method, so
// errors.Is does not match it against a bare Kind; use KindOf.
func (e *fatalErr) FatalKind() Kind { return e.kind }

// Fatal builds a fatal error for one of §7's three fatal kinds. Calling
// it with a non-fatal Kind is a programmer error (it still returns an
// error, just one that Kind().Fatal() reports as false).
func Fatal(kind Kind, format string, args ...interface{}) error {
	return &fatalErr{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an error produced by Fatal, if any.
func KindOf(err error) (Kind, bool) {
	var fe *fatalErr
	if errors.As(err, &fe) {
		return fe.kind, true
	}
	return 0, false
}
