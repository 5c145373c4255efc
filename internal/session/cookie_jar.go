package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// CookieJar persists session cookies as a JSON file next to the database.
type CookieJar struct {
	path string
}

func NewCookieJar(path string) *CookieJar {
	return &CookieJar{path: path}
}

// Load returns the unexpired cookies of the jar. A missing file is an empty jar.
func (j *CookieJar) Load() ([]Cookie, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read cookie jar")
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, errors.Wrap(err, "decode cookie jar")
	}

	now := time.Now()
	valid := cookies[:0]
	for _, cookie := range cookies {
		if !cookie.Expired(now) {
			valid = append(valid, cookie)
		}
	}
	return valid, nil
}

// Save replaces the jar contents. The file is written to a temporary name and renamed
// so a crash never leaves a truncated jar behind.
func (j *CookieJar) Save(cookies []Cookie) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return errors.Wrap(err, "create cookie jar directory")
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode cookie jar")
	}

	tmp := fmt.Sprintf("%s.%d.tmp", j.path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write cookie jar")
	}
	if err := os.Rename(tmp, j.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "replace cookie jar")
	}
	return nil
}

func (j *CookieJar) Remove() error {
	if err := os.Remove(j.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove cookie jar")
	}
	return nil
}
