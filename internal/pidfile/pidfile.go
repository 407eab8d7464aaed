// Package pidfile guards against two instances running at once.
//
// The marker holds the owner's pid as decimal text and a newline. A marker
// naming a live process blocks startup, a stale one is replaced with a
// warning, and unparsable content must be removed by hand. The read, check and
// write sequence runs under an flock on "<path>.lock" so two instances
// starting together cannot both win.
package pidfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

var (
	// ErrRunning means the marker names a live process
	ErrRunning = errors.New("process already running")
	// ErrCorrupt means the marker content is not a pid
	ErrCorrupt = errors.New("pid file content incorrect")
)

// File is a marker file owned by this process
type File struct {
	path   string
	logger zerolog.Logger
}

// DefaultPath returns <system temp dir>/<program name>.pid
func DefaultPath(program string) string {
	return filepath.Join(os.TempDir(), filepath.Base(program)+".pid")
}

// Create writes the current pid to path unless another live instance owns it
func Create(path string, logger zerolog.Logger) (*File, error) {
	return create(path, os.Getpid(), processAlive, logger)
}

func create(path string, pid int, alive func(int) bool, logger zerolog.Logger) (*File, error) {
	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		owner, perr := parsePID(data)
		if perr != nil {
			return nil, fmt.Errorf("%w: remove %s manually and check running processes", ErrCorrupt, path)
		}
		if alive(owner) {
			return nil, fmt.Errorf("%w: pid %d owns %s", ErrRunning, owner, path)
		}
		logger.Warn().Int("pid", owner).Str("path", path).Msg("pid file already exists but the process does not")
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read pid file: %w", err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}
	logger.Trace().Str("path", path).Msg("pid file created")

	return &File{path: path, logger: logger}, nil
}

// Path returns the marker location
func (f *File) Path() string {
	return f.path
}

// Remove deletes the marker and its lock file
func (f *File) Remove() error {
	lock := flock.New(lockPath(f.path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", f.path, err)
	}
	defer func() {
		// unlinked while still held so a waiting instance cannot slip in between
		if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.logger.Debug().Err(err).Str("path", lock.Path()).Msg("lock file not removed")
		}
		_ = lock.Unlock()
	}()

	if err := os.Remove(f.path); err != nil {
		return fmt.Errorf("failed to delete pid file: %w", err)
	}
	f.logger.Trace().Str("path", f.path).Msg("pid file removed")
	return nil
}

func lockPath(path string) string {
	return path + ".lock"
}

func parsePID(data []byte) (int, error) {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	line = bytes.TrimSpace(line)
	for _, b := range line {
		if b < '0' || b > '9' {
			return 0, ErrCorrupt
		}
	}
	pid, err := strconv.Atoi(string(line))
	if err != nil || pid <= 0 {
		return 0, ErrCorrupt
	}
	return pid, nil
}
