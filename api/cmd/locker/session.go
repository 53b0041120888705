package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/irgordon/locker/api/internal/core/domain"
)

// storedSession is what login persists between invocations.
type storedSession struct {
	Server  string         `json:"server"`
	Session domain.Session `json:"session"`
}

var errNoSession = errors.New("not logged in; run `locker login` first")

func defaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate config directory: %w", err)
	}
	return filepath.Join(dir, "locker", "session.json"), nil
}

func saveSession(path string, s storedSession) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic replace
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func loadSession(path string) (*storedSession, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errNoSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s storedSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	if s.Session.AccessToken == "" {
		return nil, errNoSession
	}
	return &s, nil
}
