package cpp

import "fmt"

type ErrorLoc struct {
	Err error
	Pos FilePos
}

func ErrWithLoc(e error, pos FilePos) error {
	return ErrorLoc{
		Err: e,
		Pos: pos,
	}
}

func (e ErrorLoc) Error() string {
	return fmt.Sprintf("%s at %s", e.Err, e.Pos)
}

func (e ErrorLoc) Cause() error {
	return e.Err
}

type Severity int

const (
	SevWarning Severity = iota
	SevError
)

func (s Severity) String() string {
	if s == SevError {
		return "error"
	}
	return "warning"
}

// Reporter receives the diagnostics of a translation unit. Reporting never
// stops processing.
type Reporter interface {
	Warning(rng SourceRange, format string, args ...interface{})
	Error(rng SourceRange, format string, args ...interface{})
}

type Diagnostic struct {
	Sev   Severity
	Range SourceRange
	Msg   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Range.Begin, d.Sev, d.Msg)
}

// ListReporter keeps every diagnostic it is given.
type ListReporter struct {
	Diags []Diagnostic
}

func (r *ListReporter) Warning(rng SourceRange, format string, args ...interface{}) {
	r.Diags = append(r.Diags, Diagnostic{SevWarning, rng, fmt.Sprintf(format, args...)})
}

func (r *ListReporter) Error(rng SourceRange, format string, args ...interface{}) {
	r.Diags = append(r.Diags, Diagnostic{SevError, rng, fmt.Sprintf(format, args...)})
}

func (r *ListReporter) Count(sev Severity) int {
	n := 0
	for _, d := range r.Diags {
		if d.Sev == sev {
			n++
		}
	}
	return n
}

type nopReporter struct{}

func (nopReporter) Warning(SourceRange, string, ...interface{}) {}
func (nopReporter) Error(SourceRange, string, ...interface{})   {}
