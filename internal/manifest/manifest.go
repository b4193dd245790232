// Package manifest reads command declarations from YAML. A manifest can
// override the description, aliases, guard and argument converters of the
// built-in commands, and can carry fixtures that describe a guild for offline
// parsing.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/dispatch"
)

// Manifest is the root of a manifest file.
type Manifest struct {
	Commands map[string]*Command `yaml:"commands"`
	Fixtures *Fixtures           `yaml:"fixtures"`
}

// Command overrides one command. Zero fields keep the built-in value.
type Command struct {
	Description string       `yaml:"description"`
	Aliases     []string     `yaml:"aliases"`
	Guard       *Guard       `yaml:"guard"`
	Args        map[int]*Arg `yaml:"args"` // keyed by position after context and message
}

// Guard gates a command on an expression evaluated before parsing.
type Guard struct {
	Source   string `yaml:"source"`
	Inverted bool   `yaml:"inverted"`
}

// Arg overrides the converter of one argument.
type Arg struct {
	Type          string    `yaml:"type"`
	Flags         []string  `yaml:"flags"`
	Arity         int       `yaml:"arity"`
	Range         []int     `yaml:"range"` // [min, max], max 0 is unbounded
	Default       yaml.Node `yaml:"default"`
	DefaultSource string    `yaml:"default_source"`
}

// HasDefault reports whether the argument declares a default value.
func (a *Arg) HasDefault() bool { return a.Default.Kind != 0 }

// DefaultValue decodes the declared default. YAML null decodes to nil.
func (a *Arg) DefaultValue() (any, error) {
	var v any
	if err := a.Default.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	var errs []error
	for _, name := range m.Names() {
		c := m.Commands[name]
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("command with an empty name"))
			continue
		}
		if c == nil {
			m.Commands[name] = &Command{}
			continue
		}
		if c.Guard != nil && strings.TrimSpace(c.Guard.Source) == "" {
			errs = append(errs, fmt.Errorf("command %s: guard without a source", name))
		}
		for _, pos := range c.positions() {
			if err := c.Args[pos].validate(pos); err != nil {
				errs = append(errs, fmt.Errorf("command %s: %w", name, err))
			}
		}
	}
	if m.Fixtures != nil {
		if err := m.Fixtures.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Arg) validate(pos int) error {
	switch {
	case pos < 0:
		return fmt.Errorf("argument %d: negative position", pos)
	case a == nil:
		return fmt.Errorf("argument %d: empty override", pos)
	case a.Type == "" && (len(a.Flags) > 0 || a.Arity != 0 || a.Range != nil || a.DefaultSource != ""):
		return fmt.Errorf("argument %d: flags, arity and default sources need a type", pos)
	case a.Arity != 0 && a.Range != nil:
		return fmt.Errorf("argument %d: both arity and range given", pos)
	case a.Range != nil && len(a.Range) != 2:
		return fmt.Errorf("argument %d: range needs [min, max]", pos)
	case a.HasDefault() && a.DefaultSource != "":
		return fmt.Errorf("argument %d: both default and default_source given", pos)
	}
	if !a.HasDefault() && a.Type == "" {
		return fmt.Errorf("argument %d: nothing to override", pos)
	}
	return nil
}

// Names returns the declared command names in order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Commands))
	for name := range m.Commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Command returns the override for name, or nil. Names compare case-insensitively.
func (m *Manifest) Command(name string) *Command {
	if m == nil {
		return nil
	}
	if c, ok := m.Commands[name]; ok {
		return c
	}
	for n, c := range m.Commands {
		if strings.EqualFold(n, name) {
			return c
		}
	}
	return nil
}

func (c *Command) positions() []int {
	pos := make([]int, 0, len(c.Args))
	for p := range c.Args {
		pos = append(pos, p)
	}
	slices.Sort(pos)
	return pos
}

// Options turns the override into dispatch options. They are meant to follow
// the command's own options so that the manifest wins.
func (c *Command) Options(reg *convert.Registry) ([]dispatch.Option, error) {
	if c == nil {
		return nil, nil
	}
	var opts []dispatch.Option
	for _, pos := range c.positions() {
		a := c.Args[pos]
		if a.Type == "" {
			v, err := a.DefaultValue()
			if err != nil {
				return nil, fmt.Errorf("argument %d: default: %w", pos, err)
			}
			opts = append(opts, dispatch.WithDefault(pos, v))
			continue
		}
		conv, err := a.Converter(reg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", pos, err)
		}
		opts = append(opts, dispatch.WithAnnotation(pos, conv))
	}
	if c.Guard != nil {
		opts = append(opts, dispatch.WithGuard(c.Guard.Source, c.Guard.Inverted))
	}
	return opts, nil
}

// Converter builds the converter the argument declares.
func (a *Arg) Converter(reg *convert.Registry) (*convert.Converter, error) {
	var opts []convert.Option
	if len(a.Flags) > 0 {
		f, err := convert.ParseFlags(a.Flags)
		if err != nil {
			return nil, err
		}
		opts = append(opts, convert.WithFlags(f))
	}
	switch {
	case a.Arity != 0:
		opts = append(opts, convert.WithArity(a.Arity))
	case a.Range != nil:
		opts = append(opts, convert.WithRange(a.Range[0], a.Range[1]))
	}
	switch {
	case a.DefaultSource != "":
		opts = append(opts, convert.WithDefaultSource(a.DefaultSource))
	case a.HasDefault():
		v, err := a.DefaultValue()
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		opts = append(opts, convert.WithDefault(v))
	}
	return reg.NewConverter(a.Type, opts...)
}
