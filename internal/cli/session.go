package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/taskmaster-backend/internal/client"
)

// sessionFile is what login persists between invocations.
type sessionFile struct {
	Server       string `yaml:"server"`
	Email        string `yaml:"email,omitempty"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
}

var errNotLoggedIn = errors.New("not logged in; run `progressctl login` first")

func defaultSessionPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "progressctl", "session.yaml")
	}
	return ".progressctl-session.yaml"
}

func loadSession(path string) (*sessionFile, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s sessionFile
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return &s, nil
}

func saveSession(path string, s sessionFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func (s *sessionFile) session() client.Session {
	return client.Session{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}
