// Package config holds the settings of a preprocessing run: the target's
// integer widths, the preprocessor options and the include search path.
// Settings can be read from a TOML file.
package config

import (
	"io/ioutil"
	"strings"
	"time"

	"github.com/andrewchambers/c99pp/cpp"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

type Config struct {
	Target cpp.Target

	GCCExtensions   bool
	WarnUndef       bool
	MaxIncludeDepth int
	// Date for __DATE__ and __TIME__. The zero value means now.
	Date time.Time

	QuoteInclude  []string
	Include       []string
	SystemInclude []string
	NoStdInc      bool

	// Macros given as NAME or NAME=VALUE.
	Define []string
	Undef  []string
}

var defaultSystemInclude = []string{"/usr/local/include", "/usr/include"}

func Default() *Config {
	opts := cpp.DefaultOptions()
	return &Config{
		Target:          cpp.DefaultTarget(),
		GCCExtensions:   opts.GCCExtensions,
		WarnUndef:       opts.WarnUndef,
		MaxIncludeDepth: opts.MaxIncludeDepth,
		SystemInclude:   append([]string(nil), defaultSystemInclude...),
	}
}

// tomlFile is the config file as it is encoded in TOML. Absent settings are
// nil and keep their default.
type tomlFile struct {
	Target       *tomlTarget       `toml:"target"`
	Preprocessor *tomlPreprocessor `toml:"preprocessor"`
}

type tomlTarget struct {
	CharBits     *int64 `toml:"char-bits"`
	ShortBits    *int64 `toml:"short-bits"`
	IntBits      *int64 `toml:"int-bits"`
	LongBits     *int64 `toml:"long-bits"`
	LongLongBits *int64 `toml:"long-long-bits"`
	SignedChar   *bool  `toml:"signed-char"`
}

type tomlPreprocessor struct {
	GCCExtensions   *bool      `toml:"gcc-extensions"`
	WarnUndef       *bool      `toml:"warn-undef"`
	MaxIncludeDepth *int64     `toml:"max-include-depth"`
	Date            *time.Time `toml:"date"`
	QuoteInclude    []string   `toml:"quote-include"`
	Include         []string   `toml:"include"`
	SystemInclude   []string   `toml:"system-include"`
	NoStdInc        *bool      `toml:"no-std-inc"`
	Define          []string   `toml:"define"`
	Undef           []string   `toml:"undef"`
}

// Load reads the config file at path on top of the defaults.
func Load(path string) (*Config, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	cfg, err := Parse(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes a TOML config on top of the defaults.
func Parse(buf []byte) (*Config, error) {
	tf := &tomlFile{}
	if err := toml.Unmarshal(buf, tf); err != nil {
		return nil, errors.Wrap(err, "invalid TOML")
	}
	cfg := Default()
	if t := tf.Target; t != nil {
		setBits(&cfg.Target.CharBits, t.CharBits)
		setBits(&cfg.Target.ShortBits, t.ShortBits)
		setBits(&cfg.Target.IntBits, t.IntBits)
		setBits(&cfg.Target.LongBits, t.LongBits)
		setBits(&cfg.Target.LongLongBits, t.LongLongBits)
		setBool(&cfg.Target.SignedChar, t.SignedChar)
	}
	if p := tf.Preprocessor; p != nil {
		setBool(&cfg.GCCExtensions, p.GCCExtensions)
		setBool(&cfg.WarnUndef, p.WarnUndef)
		if p.MaxIncludeDepth != nil {
			cfg.MaxIncludeDepth = int(*p.MaxIncludeDepth)
		}
		if p.Date != nil {
			cfg.Date = *p.Date
		}
		cfg.QuoteInclude = append(cfg.QuoteInclude, p.QuoteInclude...)
		cfg.Include = append(cfg.Include, p.Include...)
		if p.SystemInclude != nil {
			cfg.SystemInclude = p.SystemInclude
		}
		setBool(&cfg.NoStdInc, p.NoStdInc)
		cfg.Define = append(cfg.Define, p.Define...)
		cfg.Undef = append(cfg.Undef, p.Undef...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setBits(dst *uint, v *int64) {
	if v != nil {
		*dst = uint(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks that the integer widths describe a C99 implementation
// and that the limits are usable.
func (cfg *Config) Validate() error {
	t := cfg.Target
	widths := []struct {
		name string
		bits uint
		min  uint
	}{
		{"char-bits", t.CharBits, 8},
		{"short-bits", t.ShortBits, 16},
		{"int-bits", t.IntBits, 16},
		{"long-bits", t.LongBits, 32},
		{"long-long-bits", t.LongLongBits, 64},
	}
	prev := uint(0)
	for _, w := range widths {
		switch w.bits {
		case 8, 16, 32, 64:
		default:
			return errors.Errorf("%s must be 8, 16, 32 or 64, not %d", w.name, w.bits)
		}
		if w.bits < w.min {
			return errors.Errorf("%s must be at least %d", w.name, w.min)
		}
		if w.bits < prev {
			return errors.Errorf("%s is narrower than the previous type", w.name)
		}
		prev = w.bits
	}
	if cfg.MaxIncludeDepth <= 0 {
		return errors.Errorf("max-include-depth must be positive, not %d", cfg.MaxIncludeDepth)
	}
	for _, d := range cfg.Define {
		if name, _ := SplitDefine(d); name == "" {
			return errors.Errorf("invalid macro definition %q", d)
		}
	}
	return nil
}

// Options returns the preprocessor options.
func (cfg *Config) Options() cpp.Options {
	return cpp.Options{
		GCCExtensions:   cfg.GCCExtensions,
		WarnUndef:       cfg.WarnUndef,
		MaxIncludeDepth: cfg.MaxIncludeDepth,
		Date:            cfg.Date,
	}
}

// SearchPath returns a finished include search path.
func (cfg *Config) SearchPath() *cpp.SearchPath {
	return cpp.NewSearchPath().
		AddQuoted(cfg.QuoteInclude...).
		AddAngled(cfg.Include...).
		AddSystem(cfg.SystemInclude...).
		SetNoStdInc(cfg.NoStdInc).
		Finish()
}

// SplitDefine splits NAME=VALUE. A bare NAME defines the macro as 1, like
// the -D option of a C compiler.
func SplitDefine(d string) (name, value string) {
	if i := strings.IndexByte(d, '='); i >= 0 {
		return d[:i], d[i+1:]
	}
	return d, "1"
}

// Predefine applies the Define and Undef lists to pp, definitions first.
func (cfg *Config) Predefine(pp *cpp.Preprocessor) {
	for _, d := range cfg.Define {
		pp.Define(SplitDefine(d))
	}
	for _, u := range cfg.Undef {
		pp.Undef(u)
	}
}
