package ranges

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrNotCached = errors.New("ranges not cached")
	ErrStale     = errors.New("cached ranges are stale")
)

// Cache keeps the raw published document of every provider under Dir as
// <provider>.json. The file modification time is the fetch time.
type Cache struct {
	Dir string
}

func NewCache(dir string) *Cache {
	return &Cache{Dir: dir}
}

func (c *Cache) Path(provider string) string {
	return filepath.Join(c.Dir, provider+".json")
}

func (c *Cache) Age(provider string) (time.Duration, error) {
	info, err := os.Stat(c.Path(provider))
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotCached
	} else if err != nil {
		return 0, err
	}
	return time.Since(info.ModTime()), nil
}

// Load returns the cached document. When it is older than maxAge the
// document is still returned, together with ErrStale.
func (c *Cache) Load(provider string, maxAge time.Duration) ([]byte, error) {
	age, err := c.Age(provider)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(c.Path(provider))
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && age > maxAge {
		return body, ErrStale
	}
	return body, nil
}

func (c *Cache) Store(provider string, body []byte) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("error creating cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(c.Dir, "."+provider+"-*.tmp")
	if err != nil {
		return fmt.Errorf("error creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing cache file: %w", err)
	}
	return os.Rename(tmp.Name(), c.Path(provider))
}
