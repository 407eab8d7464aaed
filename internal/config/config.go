package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// DefaultSection holds settings inherited by every job section
const DefaultSection = "default"

// keyDelimiter replaces viper's "." so that section names such as
// "zabbix.example.com" are not split into nested maps.
const keyDelimiter = "::"

var (
	// ErrNoDefaultSection is returned when the file lacks a [default] section
	ErrNoDefaultSection = errors.New("configuration failed: missing [default] section")
	// ErrNothingToDo is returned when the file has no job sections
	ErrNothingToDo = errors.New("nothing to do: no job sections configured")
)

// File is a parsed configuration: one default section plus one section per job
type File struct {
	Path     string
	defaults map[string]string
	jobs     map[string]map[string]string
	names    []string
}

// Load reads and parses an INI configuration file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	f, err := parse(data)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// LoadReader parses INI content from r
func LoadReader(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parse(data)
}

// parse takes the section list from ini (viper drops sections without keys)
// and the values from viper.
func parse(data []byte) (*File, error) {
	sections, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return fromViper(v, sections.SectionStrings())
}

// DefaultPath returns config.ini next to the running executable, or in the
// working directory when the executable path is unknown
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.ini"
	}
	return filepath.Join(filepath.Dir(exe), "config.ini")
}

// Regexes may legitimately contain ';', '#' or a trailing '\'.
var loadOptions = ini.LoadOptions{
	IgnoreInlineComment: true,
	IgnoreContinuation:  true,
}

func newViper() *viper.Viper {
	v := viper.NewWithOptions(
		viper.KeyDelimiter(keyDelimiter),
		viper.IniLoadOptions(loadOptions),
	)
	v.SetConfigType("ini")
	return v
}

func fromViper(v *viper.Viper, sections []string) (*File, error) {
	f := &File{jobs: make(map[string]map[string]string)}
	settings := v.AllSettings()

	for _, raw := range sections {
		// keys outside any section
		if raw == ini.DefaultSection {
			continue
		}
		name := strings.ToLower(raw)
		if _, dup := f.jobs[name]; dup || (name == DefaultSection && f.defaults != nil) {
			continue
		}

		section := map[string]string{}
		if values, ok := settings[name]; ok {
			m, err := cast.ToStringMapStringE(values)
			if err != nil {
				return nil, fmt.Errorf("failed to read section %q: %w", raw, err)
			}
			section = m
		}

		if name == DefaultSection {
			f.defaults = section
			continue
		}
		f.jobs[name] = section
		f.names = append(f.names, name)
	}

	if f.defaults == nil {
		return nil, ErrNoDefaultSection
	}
	if len(f.names) == 0 {
		return nil, ErrNothingToDo
	}

	sort.Strings(f.names)
	return f, nil
}

// Jobs returns the job section names in sorted order
func (f *File) Jobs() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// HasJob reports whether a job section exists, ignoring case
func (f *File) HasJob(name string) bool {
	_, ok := f.jobs[strings.ToLower(name)]
	return ok
}
