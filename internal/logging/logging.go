// Package logging builds the console logger shared by the whole run.
//
// Lines carry the classic two-letter level labels:
//
//	D2 trace, D1 debug, .. info, WW warning, EE error, !! fatal
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"golang.org/x/term"
)

const timeFormat = "2006.01.02 15:04:05"

// Options controls logger construction
type Options struct {
	// Verbosity is the -v count: 1 enables debug, 2 or more enables trace.
	Verbosity int
	// BaseLevel is the level name used when Verbosity is zero (LOG_LEVEL).
	BaseLevel string
	Color     bool
	Datetime  bool
}

var labelStyles = map[zerolog.Level]struct {
	label string
	style lipgloss.Style
}{
	zerolog.TraceLevel: {"D2", lipgloss.NewStyle().Faint(true)},
	zerolog.DebugLevel: {"D1", lipgloss.NewStyle().Faint(true)},
	zerolog.InfoLevel:  {"..", lipgloss.NewStyle().Foreground(lipgloss.Color("15"))},
	zerolog.WarnLevel:  {"WW", lipgloss.NewStyle().Foreground(lipgloss.Color("11"))},
	zerolog.ErrorLevel: {"EE", lipgloss.NewStyle().Foreground(lipgloss.Color("9"))},
	zerolog.FatalLevel: {"!!", lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)},
	zerolog.PanicLevel: {"!!", lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)},
}

// New returns a console logger writing to w
func New(w io.Writer, opts Options) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	cw := zerolog.ConsoleWriter{
		Out:         w,
		NoColor:     !opts.Color,
		TimeFormat:  timeFormat,
		FormatLevel: levelFormatter(opts.Color),
	}
	if !opts.Datetime {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	return zerolog.New(cw).
		Level(Level(opts.BaseLevel, opts.Verbosity)).
		With().Timestamp().
		Logger()
}

// Level resolves the effective level from a level name and the -v count.
// Verbosity only ever lowers the threshold.
func Level(base string, verbosity int) zerolog.Level {
	level := ParseLevel(base)
	switch {
	case verbosity >= 2:
		return zerolog.TraceLevel
	case verbosity == 1 && level > zerolog.DebugLevel:
		return zerolog.DebugLevel
	}
	return level
}

// ParseLevel maps LOG_LEVEL names to zerolog levels; unknown names mean info
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug2", "trace":
		return zerolog.TraceLevel
	case "debug1", "debug":
		return zerolog.DebugLevel
	case "warning", "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "critical", "crit":
		return zerolog.FatalLevel
	}
	return zerolog.InfoLevel
}

// ColorEnabled decides whether output to f should be coloured
func ColorEnabled(disabled bool, f *os.File) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func levelFormatter(color bool) zerolog.Formatter {
	return func(i any) string {
		name, _ := i.(string)
		level, err := zerolog.ParseLevel(name)
		entry, ok := labelStyles[level]
		if err != nil || !ok {
			return "[" + strings.ToUpper(name) + "]"
		}
		label := "[" + entry.label + "]"
		if color {
			return entry.style.Render(label)
		}
		return label
	}
}
