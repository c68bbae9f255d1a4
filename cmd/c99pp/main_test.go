package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	os.Exit(m.Run())
}

type runResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func runCmd(args ...string) runResult {
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"c99pp"}, args...), &stdout, &stderr)
	return runResult{stdout.String(), stderr.String(), code}
}

func writeFile(t *testing.T, path, content string) string {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPreprocessText(t *testing.T) {
	dir := t.TempDir()
	inc := filepath.Join(dir, "inc")
	hdr := writeFile(t, filepath.Join(inc, "h.h"), "#define H from_h\n")
	main := writeFile(t, filepath.Join(dir, "main.c"), "#include <h.h>\nH X\n")

	res := runCmd("-I", inc, "-D", "X=x,y", "--nostdinc", main)
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Equal(t, "# 1 \""+main+"\"\n# 1 \""+hdr+"\"\n# 2 \""+main+"\"\nfrom_h x,y\n", res.Stdout)
	assert.Empty(t, res.Stderr)
}

func TestTokenDumps(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "t.c"), "int x = 'a' + A;\n")
	cases := []struct {
		args []string
		exp  string
	}{
		{
			args: []string{"-T"},
			exp:  "ident:int:1:1\nident:x:1:5\n'=':=:1:7\ncharconst:'a':1:9\n'+':+:1:13\nident:A:1:15\n';':;:1:16\nEOF::2:1\n",
		},
		{
			args: []string{"-P", "-D", "A=2"},
			exp:  "ident:int:1:1\nident:x:1:5\n'=':=:1:7\ncharconst:'a':1:9\n'+':+:1:13\nintconst:2:1:15\n';':;:1:16\nEOF::2:1\n",
		},
		{
			args: []string{"--parse-tokens"},
			exp:  "int:int:1:1\nident:x:1:5\n'=':=:1:7\nintconst:'a':1:9\n'+':+:1:13\nident:A:1:15\n';':;:1:16\nEOF::2:1\n",
		},
	}
	for _, c := range cases {
		res := runCmd(append(c.args, src)...)
		assert.Equal(t, 0, res.ExitCode, "%v: %s", c.args, res.Stderr)
		assert.Equal(t, c.exp, res.Stdout, "%v", c.args)
	}
}

func TestOutputFileAndConfig(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "t.c"), "C __DATE__\n")
	conf := writeFile(t, filepath.Join(dir, "c99pp.toml"), "[preprocessor]\ndefine = [\"C=3\"]\ndate = 2015-03-07T10:20:30Z\n")
	out := filepath.Join(dir, "t.i")

	res := runCmd("--config", conf, "-o", out, "-P", src)
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Empty(t, res.Stdout)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "intconst:3:1:1\nstring:\"Mar  7 2015\":1:3\nEOF::2:1\n", string(got))

	res = runCmd("--config", conf, "--date", "2020-01-02T03:04:05Z", "-U", "C", "-P", src)
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Equal(t, "ident:C:1:1\nstring:\"Jan  2 2020\":1:3\nEOF::2:1\n", res.Stdout)
}

func TestErrorsSetExitStatus(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "bad.c"), "ok\n#error bad thing\n")
	res := runCmd("-P", src)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, src+":2:1: error: #error bad thing")
	assert.Contains(t, res.Stderr, "1 error generated.")

	res = runCmd(filepath.Join(dir, "missing.c"))
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, "Failed to open source file")
}

func TestBadUsage(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "t.c"), "x\n")
	cases := []struct {
		args []string
		msg  string
	}{
		{nil, "Bad number of args"},
		{[]string{src, src}, "Bad number of args"},
		{[]string{"--date", "yesterday", src}, "invalid date 'yesterday'"},
		{[]string{"--log-level", "loud", src}, "unknown log level 'loud'"},
		{[]string{"--config", filepath.Join(dir, "none.toml"), src}, "reading config"},
		{[]string{"-D", "=1", src}, "invalid macro definition"},
	}
	for _, c := range cases {
		res := runCmd(c.args...)
		assert.Equal(t, 1, res.ExitCode, "%v", c.args)
		assert.Contains(t, res.Stderr, c.msg, "%v", c.args)
	}
}

func TestLogging(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "t.c"), "x\n")
	res := runCmd("--log-level", "debug", "-P", src)
	require.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stderr, "configuration")
	assert.Contains(t, res.Stderr, "done")
}
