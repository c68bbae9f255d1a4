// Package diag prints diagnostics on a terminal, with the offending source
// line and a caret under the reported column.
package diag

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andrewchambers/c99pp/cpp"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
)

var (
	ErrorStyle = pterm.NewStyle(pterm.FgRed, pterm.Bold)
	WarnStyle  = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	CaretStyle = pterm.NewStyle(pterm.FgLightGreen)
	PosStyle   = pterm.NewStyle(pterm.Bold)
)

const tabWidth = 4

// Reporter writes each diagnostic as it arrives and counts them.
type Reporter struct {
	out      io.Writer
	errors   int
	warnings int
	// Lines of the files shown so far. A nil entry is a file that could
	// not be read.
	sources map[string][]string
}

var _ cpp.Reporter = (*Reporter)(nil)

func New(out io.Writer) *Reporter {
	return &Reporter{
		out:     out,
		sources: make(map[string][]string),
	}
}

func (r *Reporter) Warning(rng cpp.SourceRange, format string, args ...interface{}) {
	r.warnings++
	r.report(WarnStyle.Sprint("warning"), rng, fmt.Sprintf(format, args...))
}

func (r *Reporter) Error(rng cpp.SourceRange, format string, args ...interface{}) {
	r.errors++
	r.report(ErrorStyle.Sprint("error"), rng, fmt.Sprintf(format, args...))
}

func (r *Reporter) Errors() int   { return r.errors }
func (r *Reporter) Warnings() int { return r.warnings }

// Fatal reports an error that stopped processing. Errors carrying a source
// position are shown like any other diagnostic.
func (r *Reporter) Fatal(err error) {
	r.errors++
	var loc cpp.ErrorLoc
	if errors.As(err, &loc) {
		rng := cpp.SourceRange{Begin: loc.Pos, End: loc.Pos}
		r.report(ErrorStyle.Sprint("fatal error"), rng, loc.Err.Error())
		return
	}
	fmt.Fprintf(r.out, "%s: %s\n", ErrorStyle.Sprint("fatal error"), err)
}

// Summary writes the diagnostic counts, if there were any.
func (r *Reporter) Summary() {
	var parts []string
	if r.warnings > 0 {
		parts = append(parts, plural(r.warnings, "warning"))
	}
	if r.errors > 0 {
		parts = append(parts, plural(r.errors, "error"))
	}
	if len(parts) > 0 {
		fmt.Fprintf(r.out, "%s generated.\n", strings.Join(parts, " and "))
	}
}

func plural(n int, what string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", what)
	}
	return fmt.Sprintf("%d %ss", n, what)
}

func (r *Reporter) report(label string, rng cpp.SourceRange, msg string) {
	if rng.IsZero() {
		fmt.Fprintf(r.out, "%s: %s\n", label, msg)
		return
	}
	fmt.Fprintf(r.out, "%s: %s: %s\n", PosStyle.Sprint(rng.Begin), label, msg)
	r.showLine(rng)
}

// showLine prints the source line of rng with a caret under its first
// column, and tildes under the rest of it when it stays on the line.
func (r *Reporter) showLine(rng cpp.SourceRange) {
	lines := r.lines(rng.Begin.File)
	if rng.Begin.Line < 1 || rng.Begin.Line > len(lines) {
		return
	}
	line := lines[rng.Begin.Line-1]
	var text, pad strings.Builder
	for i, c := range line {
		w := 1
		if c == '\t' {
			w = tabWidth
			text.WriteString(strings.Repeat(" ", w))
		} else {
			text.WriteRune(c)
		}
		if i+1 < rng.Begin.Col {
			pad.WriteString(strings.Repeat(" ", w))
		}
	}
	marker := "^"
	if rng.End.Line == rng.Begin.Line {
		n := rng.End.Col - rng.Begin.Col - 1
		if limit := len(line) - rng.Begin.Col; n > limit {
			n = limit
		}
		if n > 0 {
			marker += strings.Repeat("~", n)
		}
	}
	fmt.Fprintf(r.out, "%s\n%s%s\n", text.String(), pad.String(), CaretStyle.Sprint(marker))
}

func (r *Reporter) lines(path string) []string {
	if lines, ok := r.sources[path]; ok {
		return lines
	}
	var lines []string
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		f.Close()
	}
	r.sources[path] = lines
	return lines
}
