package diag

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andrewchambers/c99pp/cpp"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	os.Exit(m.Run())
}

func rangeOf(file string, line, col, endCol int) cpp.SourceRange {
	return cpp.SourceRange{
		Begin: cpp.FilePos{File: file, Line: line, Col: col},
		End:   cpp.FilePos{File: file, Line: line, Col: endCol},
	}
}

func TestReportShowsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.c")
	require.NoError(t, os.WriteFile(path, []byte("int x;\n\tfoo(bar);\n"), 0644))

	var out bytes.Buffer
	r := New(&out)
	r.Error(rangeOf(path, 2, 6, 9), "unknown identifier '%s'", "bar")
	r.Warning(rangeOf(path, 1, 5, 6), "unused")
	assert.Equal(t, 1, r.Errors())
	assert.Equal(t, 1, r.Warnings())

	want := path + ":2:6: error: unknown identifier 'bar'\n" +
		"    foo(bar);\n" +
		"        ^~~\n" +
		path + ":1:5: warning: unused\n" +
		"int x;\n" +
		"    ^\n"
	assert.Equal(t, want, out.String())
}

func TestReportWithoutSource(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)
	r.Warning(rangeOf("<command line>", 1, 1, 2), "redefined")
	r.Error(cpp.SourceRange{}, "no position")
	r.Error(rangeOf(filepath.Join(t.TempDir(), "gone.c"), 3, 1, 1), "missing file")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "<command line>:1:1: warning: redefined", lines[0])
	assert.Equal(t, "error: no position", lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "gone.c:3:1: error: missing file"))
}

func TestSummary(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)
	r.Summary()
	assert.Empty(t, out.String())

	r.Warning(cpp.SourceRange{}, "w")
	r.Error(cpp.SourceRange{}, "e1")
	r.Error(cpp.SourceRange{}, "e2")
	out.Reset()
	r.Summary()
	assert.Equal(t, "1 warning and 2 errors generated.\n", out.String())
}

func TestFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.c")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0644))

	var out bytes.Buffer
	r := New(&out)
	r.Fatal(errors.Wrap(cpp.ErrWithLoc(errors.New("read failed"), cpp.FilePos{File: path, Line: 2, Col: 1}), "preprocessing failed"))
	assert.Equal(t, path+":2:1: fatal error: read failed\ntwo\n^\n", out.String())

	out.Reset()
	r.Fatal(errors.New("no input"))
	assert.Equal(t, "fatal error: no input\n", out.String())
	assert.Equal(t, 2, r.Errors())
}

func TestReporterDrivesPreprocessor(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)
	pp := cpp.New(cpp.Lex("<stdin>", strings.NewReader("#error stop\n"), cpp.NewEnv(cpp.DefaultTarget(), r)), cpp.NewSearchPath(), cpp.DefaultOptions())
	for {
		tok, err := pp.Next()
		require.NoError(t, err)
		if tok.Kind == cpp.EOF {
			break
		}
	}
	assert.Equal(t, 1, r.Errors())
	assert.Equal(t, "<stdin>:1:1: error: #error stop\n", out.String())
}
