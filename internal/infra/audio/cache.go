package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const filePrefix = "audio-"

// Cache keeps received audio payloads in a scoped directory, one file per
// reply, named after the reception time.
type Cache struct {
	dir       string
	retention time.Duration
	now       func() time.Time
	mu        sync.Mutex
}

func NewCache(dir string, retention time.Duration) *Cache {
	return &Cache{
		dir:       dir,
		retention: retention,
		now:       time.Now,
	}
}

func (c *Cache) Dir() string {
	return c.dir
}

// Start creates the directory and drops files left over from earlier runs.
func (c *Cache) Start(_ context.Context) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating audio cache dir: %w", err)
	}
	if _, err := c.Prune(); err != nil {
		return fmt.Errorf("pruning audio cache: %w", err)
	}
	return nil
}

func (c *Cache) Store(data []byte, contentType string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("creating audio cache dir: %w", err)
	}

	base := fmt.Sprintf("%s%d", filePrefix, c.now().UnixMilli())
	ext := extensionFor(contentType)

	for attempt := 0; attempt < 100; attempt++ {
		name := base + ext
		if attempt > 0 {
			name = fmt.Sprintf("%s-%d%s", base, attempt, ext)
		}
		path := filepath.Join(c.dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating audio file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("writing audio file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("closing audio file %s: %w", path, err)
		}
		return path, nil
	}

	return "", fmt.Errorf("no free audio file name for %s", base)
}

// Release deletes a file previously returned by Store. Paths outside the
// cache directory are refused.
func (c *Cache) Release(path string) error {
	if path == "" {
		return nil
	}

	dir, err := filepath.Abs(c.dir)
	if err != nil {
		return fmt.Errorf("resolving cache dir: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if filepath.Dir(abs) != dir || !strings.HasPrefix(filepath.Base(abs), filePrefix) {
		return fmt.Errorf("refusing to remove %s: not a cached audio file", path)
	}

	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Prune removes cached files older than the retention period.
func (c *Cache) Prune() (int, error) {
	if c.retention <= 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading dir: %w", err)
	}

	cutoff := c.now().Add(-c.retention)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/aac", "audio/x-m4a":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
