package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ppcp-backend/internal/cache"
	"ppcp-backend/internal/models"
)

// EntriesKey is the state key holding the serialized entry collection
const EntriesKey = "ppcp_entries"

const entriesCacheTTL = 10 * time.Minute

// EntryStore reads and writes the whole entry collection as one JSON array
type EntryStore struct {
	State StateRepository
}

func NewEntryStore(state StateRepository) *EntryStore {
	return &EntryStore{State: state}
}

// Load returns the stored collection, or an empty one if nothing was ever
// saved. It may answer from the cache, so a read-modify-write must use
// LoadLatest instead.
func (s *EntryStore) Load(ctx context.Context) ([]models.Entry, error) {
	if data, ok := cache.GetCached(ctx, cache.EntriesKey); ok {
		var entries []models.Entry
		if err := json.Unmarshal(data, &entries); err == nil {
			return entries, nil
		}
		log.Printf("[Redis] Discarding unreadable cached collection")
		cache.InvalidateKeys(ctx, cache.EntriesKey)
	}

	raw, entries, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		// a Replace that lands after our read has already written the key
		cache.SetCachedIfAbsent(ctx, cache.EntriesKey, []byte(raw), entriesCacheTTL)
	}
	return entries, nil
}

// LoadLatest reads the collection from state, bypassing the cache
func (s *EntryStore) LoadLatest(ctx context.Context) ([]models.Entry, error) {
	_, entries, err := s.read(ctx)
	return entries, err
}

func (s *EntryStore) read(ctx context.Context) (string, []models.Entry, error) {
	raw, ok, err := s.State.Get(ctx, EntriesKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", EntriesKey, err)
	}
	if !ok || raw == "" {
		return "", []models.Entry{}, nil
	}

	var entries []models.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return "", nil, fmt.Errorf("failed to decode %s: %w", EntriesKey, err)
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return raw, entries, nil
}

// Replace writes the complete collection in a single put and then stores
// the same bytes in the cache
func (s *EntryStore) Replace(ctx context.Context, entries []models.Entry) error {
	if entries == nil {
		entries = []models.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", EntriesKey, err)
	}

	if err := s.State.Put(ctx, EntriesKey, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", EntriesKey, err)
	}
	if err := cache.SetCached(ctx, cache.EntriesKey, data, entriesCacheTTL); err != nil {
		log.Printf("[Redis] Failed to refresh cached collection: %v", err)
		cache.InvalidateKeys(ctx, cache.EntriesKey)
	}
	return nil
}
