package clientstate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	KeyOwnerID        = "OWNER_ID"
	KeyMagicLinkEmail = "MAGIC_LINK_EMAIL"
	KeyTheme          = "THEME"
	KeyAccessToken    = "ACCESS_TOKEN"
	KeyRefreshToken   = "REFRESH_TOKEN"
	KeyUserID         = "USER_ID"
	KeyRole           = "ROLE"

	ThemeLight = "light"
	ThemeDark  = "dark"

	defaultFileName = "state.env"
	appDirName      = "conduit-storefront"
)

// Store is the durable key-value file the terminal clients keep between runs.
// Values are written in dotenv format so the file stays human editable.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// DefaultPath returns <user config dir>/conduit-storefront/state.env.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, defaultFileName), nil
}

// Open loads the file at path, treating a missing file as empty state.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading client state: %w", err)
		}
		values = map[string]string{}
	}
	return &Store{path: path, values: values}, nil
}

// Path is the backing file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Set writes key and persists the file. An empty value deletes the key.
func (s *Store) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// SetMany applies every update and persists once.
func (s *Store) SetMany(updates map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range updates {
		if value == "" {
			delete(s.values, key)
			continue
		}
		s.values[key] = value
	}
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := godotenv.Write(s.values, s.path); err != nil {
		return fmt.Errorf("writing client state: %w", err)
	}
	// tokens live here; keep the file private
	return os.Chmod(s.path, 0o600)
}

// OwnerID returns the pseudonymous cart owner, generating and persisting a
// UUIDv4 the first time it is needed.
func (s *Store) OwnerID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner := s.values[KeyOwnerID]; owner != "" {
		if _, err := uuid.Parse(owner); err == nil {
			return owner, nil
		}
	}
	owner := uuid.NewString()
	s.values[KeyOwnerID] = owner
	if err := s.persistLocked(); err != nil {
		return "", err
	}
	return owner, nil
}

// Theme returns the stored theme, defaulting to light.
func (s *Store) Theme() string {
	if s.Get(KeyTheme) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (s *Store) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("theme must be %q or %q", ThemeLight, ThemeDark)
	}
	return s.Set(KeyTheme, theme)
}

// Session is the signed-in identity the clients pass to the components that need it.
type Session struct {
	UserID       string
	Role         string
	AccessToken  string
	RefreshToken string
}

// Authenticated reports whether the session carries tokens.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Session{
		UserID:       s.values[KeyUserID],
		Role:         s.values[KeyRole],
		AccessToken:  s.values[KeyAccessToken],
		RefreshToken: s.values[KeyRefreshToken],
	}
}

func (s *Store) SaveSession(session Session) error {
	return s.SetMany(map[string]string{
		KeyUserID:       session.UserID,
		KeyRole:         session.Role,
		KeyAccessToken:  session.AccessToken,
		KeyRefreshToken: session.RefreshToken,
	})
}

// ClearSession signs out locally. The pseudonymous owner id is kept, so the
// anonymous cart is still there after logout.
func (s *Store) ClearSession() error {
	return s.SaveSession(Session{})
}
