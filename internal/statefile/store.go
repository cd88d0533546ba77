// Package statefile keeps small pieces of bot state (such as the join panel
// location) in a JSON object on disk.
package statefile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/pubsub"
	"github.com/zjrosen/clanbot/internal/watcher"
)

// Store is a JSON key/value file. Reads are served from memory; every Set
// rewrites the whole file atomically.
type Store struct {
	path   string
	mu     sync.RWMutex
	values map[string]json.RawMessage
	events *pubsub.Broker[string]
}

// Open loads path, treating a missing file as empty state. A corrupt file
// is logged and also treated as empty so the bot can still start.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: map[string]json.RawMessage{},
		events: pubsub.NewBroker[string](),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get decodes the value at key into v. It reports false when the key is
// absent.
func (s *Store) Get(key string, v any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding state %q: %w", key, err)
	}
	return true, nil
}

// Set stores v at key and persists the file.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding state %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = raw
	if err := s.writeLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	log.Debug(log.CatState, "State updated", "key", key)
	return nil
}

// Delete removes key and persists the file.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	prev := s.values[key]
	delete(s.values, key)
	if err := s.writeLocked(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

// Keys returns the stored keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Reload replaces the in-memory state with the file contents.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.replace(map[string]json.RawMessage{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading state file: %w", err)
	}

	values := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			log.Warn(log.CatState, "State file is not a JSON object, starting empty", "path", s.path, "error", err)
			values = map[string]json.RawMessage{}
		}
	}
	s.replace(values)
	return nil
}

func (s *Store) replace(values map[string]json.RawMessage) {
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
}

func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".state.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()
	if _, err := temp.Write(append(data, '\n')); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Subscribe returns reload notifications (payload: file path).
func (s *Store) Subscribe(ctx context.Context) <-chan pubsub.Event[string] {
	return s.events.Subscribe(ctx)
}

// Watch reloads the store whenever the file changes on disk until ctx is
// done. Operators can edit the file by hand while the bot runs.
func (s *Store) Watch(ctx context.Context, cfg watcher.Config) error {
	cfg.Path = s.path
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}

	go func() {
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				if err := s.Reload(); err != nil {
					log.ErrorErr(log.CatState, "Reloading state file failed", err, "path", s.path)
					continue
				}
				log.Info(log.CatState, "State file reloaded", "path", s.path)
				s.events.Publish(pubsub.StateFileReloaded, s.path)
			}
		}
	}()
	return nil
}

// Close releases subscribers.
func (s *Store) Close() {
	s.events.Close()
}
