package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Binder struct {
	// Release the interpreter lock during native calls.
	AllowThreads bool `toml:"allow-threads" yaml:"allow-threads"`
	// Casing keyword argument names are written in (none, snake, camel
	// or kebab).
	KeywordCasing string `toml:"keyword-casing" yaml:"keyword-casing"`
	// Log each overload candidate attempt.
	Trace bool `toml:"trace" yaml:"trace"`
}

type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Prefix string `toml:"prefix" yaml:"prefix"`
}

type Rule struct {
	Select struct {
		Package *regexp.Regexp `toml:"package" yaml:"package"`
		Name    *regexp.Regexp `toml:"name" yaml:"name"`
		Recv    *regexp.Regexp `toml:"recv" yaml:"recv"`
		Type    string         `toml:"type" yaml:"type"`
	} `toml:"select" yaml:"select"`
	Actions struct {
		Include  *bool  `toml:"include" yaml:"include"`
		Rename   string `toml:"rename" yaml:"rename"`
		ToCasing string `toml:"to-casing" yaml:"to-casing"`
	} `toml:"action" yaml:"action"`
}

type Generate struct {
	Packages    []string `toml:"packages" yaml:"packages"`
	Output      string   `toml:"output" yaml:"output"`
	PackageName string   `toml:"package-name" yaml:"package-name"`
	// Binding list file, see [BindingList]. Empty means none.
	BindingList string `toml:"binding-list" yaml:"binding-list"`
}

type Config struct {
	Imports  []string `toml:"imports" yaml:"imports"`
	Binder   Binder   `toml:"binder" yaml:"binder"`
	Log      Log      `toml:"log" yaml:"log"`
	Rules    []Rule   `toml:"rule" yaml:"rule"`
	Generate Generate `toml:"generate" yaml:"generate"`
}

// Default returns the configuration used when none is given.
func Default() *Config {
	return &Config{
		Binder: Binder{KeywordCasing: "none"},
		Log:    Log{Level: "info"},
	}
}

type Error struct {
	filePath string
	err      error  // short, single-line error
	str      string // full, multi-line error string, or err string, if none
}

// Error returns a short error message.
func (e *Error) Error() string {
	return e.filePath + ": " + e.err.Error()
}

// String returns the full multi-line error string.
func (e *Error) String() string {
	if e.str != "" {
		return "Error in file " + strconv.Quote(e.filePath) + ":\n" + e.str
	} else {
		return e.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// Load reads a TOML or YAML (.yaml, .yml) config file. Files listed in
// imports are loaded relative to the importing file and merged in, with
// their rules appended after the importing file's.
func Load(path string) (_ *Config, err error) {
	defer func() {
		if err != nil {
			var cErr *Error
			if errors.As(err, &cErr) {
				return
			}
			if tErr := (&toml.DecodeError{}); errors.As(err, &tErr) {
				err = &Error{filePath: path, err: err, str: tErr.String()}
			} else if tErr := (&toml.StrictMissingError{}); errors.As(err, &tErr) {
				err = &Error{filePath: path, err: err, str: tErr.String()}
			} else if yErr := (&yaml.TypeError{}); errors.As(err, &yErr) {
				err = &Error{filePath: path, err: err, str: strings.Join(yErr.Errors, "\n")}
			} else {
				err = &Error{filePath: path, err: err}
			}
		}
	}()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := Parse(file, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	var importedCs []*Config // collect imported files first so their imports don't leak into our file's imports
	for _, imp := range c.Imports {
		if !filepath.IsAbs(imp) {
			imp = filepath.Join(filepath.Dir(path), imp)
		}
		newC, err := Load(imp)
		if err != nil {
			return nil, err
		}
		importedCs = append(importedCs, newC)
	}
	for _, newC := range importedCs {
		if err := mergo.Merge(c, newC, mergo.WithAppendSlice); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Parse decodes a config from data. ext selects the format: ".yaml" and
// ".yml" are YAML, anything else is TOML. Unknown fields are errors.
func Parse(data []byte, ext string) (*Config, error) {
	c := &Config{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		err := toml.NewDecoder(bytes.NewReader(data)).
			DisallowUnknownFields().
			Decode(c)
		if err != nil {
			return nil, err
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Binder.KeywordCasing {
	case "", "none", "snake", "camel", "kebab":
	default:
		return fmt.Errorf("binder: invalid keyword-casing %v", strconv.Quote(c.Binder.KeywordCasing))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log: invalid level %v", strconv.Quote(c.Log.Level))
	}
	for i, r := range c.Rules {
		switch r.Actions.ToCasing {
		case "", "kebab", "camel", "snake":
		default:
			return fmt.Errorf("rule %v: unknown casing %v", i+1, strconv.Quote(r.Actions.ToCasing))
		}
	}
	return nil
}
