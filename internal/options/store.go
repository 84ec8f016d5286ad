package options

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// OptionsKey is the key the export settings document is stored under.
const OptionsKey = "export_options"

var ErrNotFound = errors.New("option not found")

// Store is a key/value option store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Manager reads and writes Options through a Store.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Load returns the effective options; missing settings yield Defaults.
func (m *Manager) Load(ctx context.Context) (Options, error) {
	raw, err := m.store.Get(ctx, OptionsKey)
	if errors.Is(err, ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Options{}, fmt.Errorf("failed to load options: %w", err)
	}

	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return Options{}, fmt.Errorf("failed to decode options: %w", err)
	}
	return Validate(in), nil
}

// Save coerces the input and persists the result.
func (m *Manager) Save(ctx context.Context, in Input) (Options, error) {
	opts := Validate(in)
	raw, err := json.Marshal(opts)
	if err != nil {
		return Options{}, err
	}
	if err := m.store.Set(ctx, OptionsKey, raw); err != nil {
		return Options{}, fmt.Errorf("failed to save options: %w", err)
	}
	return opts, nil
}

// Clear deletes all saved options.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, OptionsKey); err != nil {
		return fmt.Errorf("failed to clear options: %w", err)
	}
	return nil
}
