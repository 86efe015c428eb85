// Package session produces and stores the anonymous cart token a storefront
// client sends with every cart request. The token partitions cart data; it
// is not a credential and anyone holding it can act on that cart.
package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	tokenPrefix    = "session_"
	randomPartSize = 13
)

// NewToken returns session_<unix millis>_<13 base36 chars>. The random part
// comes from a v4 UUID.
func NewToken(now time.Time) string {
	u := uuid.New()
	random := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(random) < randomPartSize {
		random = strings.Repeat("0", randomPartSize-len(random)) + random
	}
	return fmt.Sprintf("%s%d_%s", tokenPrefix, now.UnixMilli(), random[:randomPartSize])
}

// Store persists one token between runs
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// ErrNoToken is returned by Load when nothing has been saved yet
var ErrNoToken = errors.New("no session token stored")

// FileStore keeps the token in a single file, the command-line analogue of
// the browser's local storage key
type FileStore struct {
	Path string
}

// DefaultPath is <user config dir>/storefront/session
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "storefront", "session"), nil
}

func (s FileStore) Load() (string, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to read session token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write session token: %w", err)
	}
	return nil
}

func (s FileStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session token: %w", err)
	}
	return nil
}

// Ensure returns the stored token, generating and saving a new one on
// first use
func Ensure(store Store, now func() time.Time) (string, error) {
	token, err := store.Load()
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, ErrNoToken) {
		return "", err
	}

	token = NewToken(now())
	if err := store.Save(token); err != nil {
		return "", err
	}
	return token, nil
}
