package failurelog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrMultilineKey is returned for keys that cannot be stored on one line.
var ErrMultilineKey = errors.New("key contains a line break")

// File appends newline-delimited keys. Each key is written with a single
// write on an O_APPEND descriptor, so lines from separate processes do not
// interleave; the mutex serialises writers inside one process.
type File struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open failure log %q: %w", path, err)
	}
	return &File{f: f, path: path}, nil
}

func (l *File) Append(_ context.Context, key string) error {
	if strings.ContainsAny(key, "\r\n") {
		return fmt.Errorf("append %q to %q: %w", key, l.path, ErrMultilineKey)
	}
	line := key + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("append to %q: %w", l.path, err)
	}
	return nil
}

func (l *File) Close() error {
	return l.f.Close()
}

// FileSource reads a failure log line by line. Only the bytes present when
// Each starts are read, so replaying into the same file terminates.
type FileSource struct {
	Path string
}

func (s FileSource) Each(ctx context.Context, fn func(key string) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open replay file %q: %w", s.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat replay file %q: %w", s.Path, err)
	}

	sc := bufio.NewScanner(io.LimitReader(f, info.Size()))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(key) == "" {
			continue
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return sc.Err()
}
