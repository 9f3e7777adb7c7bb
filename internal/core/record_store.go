package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/stocksync/internal/store"
)

// Persisted state keys.
const (
	KeyNewRecords     = "newRecords"
	KeyMissingRecords = "missingRecords"
	KeyShareMessage   = "whatsAppModelData"
)

// StateKeys lists every key owned by the record store.
var StateKeys = []string{KeyNewRecords, KeyMissingRecords, KeyShareMessage}

// RecordStore is the typed view over a key/value backend.
//
// Reads never fail: a missing, unreadable or malformed entry is logged and
// replaced by the key's default value.
type RecordStore struct {
	backend store.Backend
}

// NewRecordStore wraps backend.
func NewRecordStore(backend store.Backend) *RecordStore {
	return &RecordStore{backend: backend}
}

// Get decodes key into dst and reports whether a usable value was found.
// When false is returned dst may hold a partial decode and should be
// discarded.
func (s *RecordStore) Get(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		slog.Warn("record store read failed, using default", "key", key, "error", err)
		return false
	}
	if !ok || len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("malformed persisted value, using default", "key", key, "error", err)
		return false
	}
	return true
}

// Set encodes v as JSON and stores it under key.
func (s *RecordStore) Set(ctx context.Context, key string, v any) error {
	return s.SetMany(ctx, map[string]any{key: v})
}

// SetMany encodes and stores all values in one atomic write.
func (s *RecordStore) SetMany(ctx context.Context, values map[string]any) error {
	entries := make(map[string][]byte, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		entries[k] = data
	}
	if err := s.backend.SetMany(ctx, entries); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// Inserted returns the stored newly inserted records, or an empty collection.
func (s *RecordStore) Inserted(ctx context.Context) RecordCollection {
	return s.collection(ctx, KeyNewRecords)
}

// Missing returns the stored missing records, or an empty collection.
func (s *RecordStore) Missing(ctx context.Context) RecordCollection {
	return s.collection(ctx, KeyMissingRecords)
}

func (s *RecordStore) collection(ctx context.Context, key string) RecordCollection {
	var c RecordCollection
	if !s.Get(ctx, key, &c) || c == nil {
		return RecordCollection{}
	}
	return c
}

// Share returns the last persisted share message. ok is false when none
// is stored.
func (s *RecordStore) Share(ctx context.Context) (ShareMessage, bool) {
	var msg ShareMessage
	if !s.Get(ctx, KeyShareMessage, &msg) {
		return ShareMessage{}, false
	}
	return msg, true
}

// SaveAll persists both collections and the share message together.
func (s *RecordStore) SaveAll(ctx context.Context, inserted, missing RecordCollection, share ShareMessage) error {
	return s.SetMany(ctx, map[string]any{
		KeyNewRecords:     inserted,
		KeyMissingRecords: missing,
		KeyShareMessage:   share,
	})
}

// Clear removes the named keys, or all state keys when none are given.
// It returns the cleared keys so callers can reset their own mirrors.
func (s *RecordStore) Clear(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		keys = StateKeys
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		return nil, fmt.Errorf("clear state: %w", err)
	}
	cleared := make([]string, len(keys))
	copy(cleared, keys)
	return cleared, nil
}
