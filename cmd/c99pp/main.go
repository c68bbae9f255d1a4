package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andrewchambers/c99pp/config"
	"github.com/andrewchambers/c99pp/cpp"
	"github.com/andrewchambers/c99pp/diag"
	"github.com/andrewchambers/c99pp/parse"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
)

const version = "0.1"

var logLevels = map[string]pterm.LogLevel{
	"trace":    pterm.LogLevelTrace,
	"debug":    pterm.LogLevelDebug,
	"info":     pterm.LogLevelInfo,
	"warn":     pterm.LogLevelWarn,
	"error":    pterm.LogLevelError,
	"disabled": pterm.LogLevelDisabled,
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "c99pp",
		Usage:     "C99 preprocessor",
		ArgsUsage: "FILE.c",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		// -D values may contain commas.
		DisableSliceFlagSeparator: true,
		// Exit codes are handled by run.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "T", Usage: "Print tokens after lexing (For debugging)."},
			&cli.BoolFlag{Name: "P", Usage: "Print tokens after preprocessing (For debugging)."},
			&cli.BoolFlag{Name: "parse-tokens", Usage: "Print the tokens a parser would see."},
			&cli.StringSliceFlag{Name: "I", Usage: "Add `DIR` to the include search path."},
			&cli.StringSliceFlag{Name: "iquote", Usage: "Add `DIR` to the search path of quoted includes."},
			&cli.StringSliceFlag{Name: "isystem", Usage: "Add `DIR` to the system include directories."},
			&cli.BoolFlag{Name: "nostdinc", Usage: "Do not search the system include directories."},
			&cli.StringSliceFlag{Name: "D", Usage: "Define `NAME[=VALUE]`."},
			&cli.StringSliceFlag{Name: "U", Usage: "Undefine `NAME`."},
			&cli.StringFlag{Name: "date", Usage: "Use `RFC3339-TIME` for __DATE__ and __TIME__."},
			&cli.StringFlag{Name: "config", Usage: "Read settings from the TOML `FILE`."},
			&cli.StringFlag{Name: "o", Value: "-", Usage: "File to write output to, - for stdout."},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "Driver log `LEVEL`: trace, debug, info, warn, error or disabled."},
			&cli.BoolFlag{Name: "no-color", Usage: "Print diagnostics without colors."},
		},
		Action: func(c *cli.Context) error {
			return compile(c, stdout, stderr)
		},
	}
}

// run returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(args)
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := ec.Error(); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		return ec.ExitCode()
	}
	fmt.Fprintln(stderr, err)
	return 1
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	cfg.Include = append(cfg.Include, c.StringSlice("I")...)
	cfg.QuoteInclude = append(cfg.QuoteInclude, c.StringSlice("iquote")...)
	cfg.SystemInclude = append(c.StringSlice("isystem"), cfg.SystemInclude...)
	if c.IsSet("nostdinc") {
		cfg.NoStdInc = c.Bool("nostdinc")
	}
	cfg.Define = append(cfg.Define, c.StringSlice("D")...)
	cfg.Undef = append(cfg.Undef, c.StringSlice("U")...)
	if s := c.String("date"); s != "" {
		date, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid date '%s'", s)
		}
		cfg.Date = date
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func compile(c *cli.Context, stdout, stderr io.Writer) error {
	if c.Bool("no-color") {
		pterm.DisableColor()
	}
	level, ok := logLevels[c.String("log-level")]
	if !ok {
		return cli.Exit(fmt.Sprintf("unknown log level '%s'", c.String("log-level")), 1)
	}
	logger := pterm.DefaultLogger.WithLevel(level).WithWriter(stderr)

	if c.NArg() != 1 {
		return cli.Exit("Bad number of args, please specify a single source file.", 1)
	}
	input := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	sp := cfg.SearchPath()
	logger.Debug("configuration", logger.Args(
		"config", c.String("config"),
		"include", strings.Join(sp.Dirs(), ":"),
		"defines", len(cfg.Define),
	))

	var out io.Writer = stdout
	if path := c.String("o"); path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to open output file %s", err), 1)
		}
		defer f.Close()
		out = f
	}

	rep := diag.New(stderr)
	start := time.Now()
	switch {
	case c.Bool("T"):
		err = tokenizeFile(cfg, input, out, rep)
	case c.Bool("P"):
		err = preprocessFile(cfg, sp, input, out, rep, printPPTokens)
	case c.Bool("parse-tokens"):
		err = preprocessFile(cfg, sp, input, out, rep, printParseTokens)
	default:
		err = preprocessFile(cfg, sp, input, out, rep, writeText)
	}
	if err != nil {
		rep.Fatal(err)
	}
	rep.Summary()
	logger.Info("done", logger.Args(
		"file", input,
		"errors", rep.Errors(),
		"warnings", rep.Warnings(),
		"elapsed", time.Since(start).String(),
	))
	if rep.Errors() > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func openSource(path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), "<stdin>", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to open source file %s", path)
	}
	return f, path, nil
}

func tokenizeFile(cfg *config.Config, path string, out io.Writer, rep cpp.Reporter) error {
	f, name, err := openSource(path)
	if err != nil {
		return err
	}
	defer f.Close()
	lexer := cpp.Lex(name, f, cpp.NewEnv(cfg.Target, rep))
	return printTokens(lexer, out)
}

type tokenSource interface {
	Next() (*cpp.Token, error)
}

func printTokens(src tokenSource, out io.Writer) error {
	for {
		tok, err := src.Next()
		if err != nil {
			return err
		}
		if tok.Kind == cpp.WHITESPACE || tok.Kind == cpp.NEWLINE {
			continue
		}
		fmt.Fprintln(out, cpp.FormatToken(tok))
		if tok.Kind == cpp.EOF {
			return nil
		}
	}
}

func printPPTokens(pp *cpp.Preprocessor, out io.Writer) error {
	return printTokens(pp, out)
}

func printParseTokens(pp *cpp.Preprocessor, out io.Writer) error {
	return printTokens(parse.NewTokenStream(pp), out)
}

func writeText(pp *cpp.Preprocessor, out io.Writer) error {
	_, err := pp.WriteTo(out)
	return err
}

func preprocessFile(cfg *config.Config, sp *cpp.SearchPath, path string, out io.Writer, rep cpp.Reporter, emit func(*cpp.Preprocessor, io.Writer) error) error {
	f, name, err := openSource(path)
	if err != nil {
		return err
	}
	defer f.Close()
	pp := cpp.New(cpp.Lex(name, f, cpp.NewEnv(cfg.Target, rep)), sp, cfg.Options())
	defer pp.Close()
	cfg.Predefine(pp)
	return emit(pp, out)
}
