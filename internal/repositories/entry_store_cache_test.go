package repositories

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"ppcp-backend/internal/cache"
	"ppcp-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func useCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(c)
	t.Cleanup(func() {
		cache.SetClient(nil)
		c.Close()
	})
	return mr
}

// gatedState holds the next Get after it has read, until released
type gatedState struct {
	StateRepository

	mu      sync.Mutex
	armed   bool
	reached chan struct{}
	release chan struct{}
}

func newGatedState(inner StateRepository) *gatedState {
	return &gatedState{
		StateRepository: inner,
		reached:         make(chan struct{}),
		release:         make(chan struct{}),
	}
}

func (g *gatedState) arm() {
	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()
}

func (g *gatedState) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := g.StateRepository.Get(ctx, key)
	g.mu.Lock()
	hold := g.armed
	g.armed = false
	g.mu.Unlock()
	if hold {
		close(g.reached)
		<-g.release
	}
	return v, ok, err
}

func orderCodes(entries []models.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.OrderCode
	}
	return out
}

func TestEntryStore_ReplaceWritesThroughCache(t *testing.T) {
	mr := useCache(t)
	state := NewMemoryStateRepository()
	store := NewEntryStore(state)
	ctx := context.Background()
	want := []models.Entry{storedEntry("1", "OC1")}

	if err := store.Replace(ctx, want); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	cached, err := mr.Get(cache.EntriesKey)
	if err != nil {
		t.Fatalf("collection not cached: %v", err)
	}
	persisted, _, _ := state.Get(ctx, EntriesKey)
	if cached != persisted {
		t.Errorf("cached %s, persisted %s", cached, persisted)
	}

	// a hit is served without touching state
	state.Put(ctx, EntriesKey, `[]`)
	got, err := store.Load(ctx)
	if err != nil || len(got) != 1 || got[0] != want[0] {
		t.Errorf("Load = %+v, %v; want cached collection", got, err)
	}

	latest, err := store.LoadLatest(ctx)
	if err != nil || len(latest) != 0 {
		t.Errorf("LoadLatest = %+v, %v; want state contents", latest, err)
	}
}

func TestEntryStore_LoadFillsEmptyCache(t *testing.T) {
	mr := useCache(t)
	state := NewMemoryStateRepository()
	data, _ := json.Marshal([]models.Entry{storedEntry("1", "OC1")})
	state.Put(context.Background(), EntriesKey, string(data))

	got, err := NewEntryStore(state).Load(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("Load = %+v, %v", got, err)
	}
	if cached, _ := mr.Get(cache.EntriesKey); cached != string(data) {
		t.Errorf("cached = %q, want %q", cached, data)
	}
}

func TestEntryStore_LoadRecoversFromUnreadableCache(t *testing.T) {
	mr := useCache(t)
	state := NewMemoryStateRepository()
	data, _ := json.Marshal([]models.Entry{storedEntry("1", "OC1")})
	state.Put(context.Background(), EntriesKey, string(data))
	mr.Set(cache.EntriesKey, `{garbage`)

	got, err := NewEntryStore(state).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].OrderCode != "OC1" {
		t.Errorf("got %+v, want the persisted collection", got)
	}
	if cached, _ := mr.Get(cache.EntriesKey); cached != string(data) {
		t.Errorf("cache = %q, want it refilled from state", cached)
	}
}

func TestEntryStore_SlowReaderDoesNotCacheOldCollection(t *testing.T) {
	mr := useCache(t)
	state := newGatedState(NewMemoryStateRepository())
	store := NewEntryStore(state)
	ctx := context.Background()

	if err := store.Replace(ctx, []models.Entry{storedEntry("1", "A")}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	mr.Del(cache.EntriesKey)

	state.arm()
	done := make(chan []models.Entry)
	go func() {
		entries, _ := store.Load(ctx)
		done <- entries
	}()
	<-state.reached

	if err := store.Replace(ctx, []models.Entry{storedEntry("1", "A"), storedEntry("2", "B")}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	close(state.release)
	if old := <-done; len(old) != 1 {
		t.Fatalf("reader saw %v, want the collection it read before the write", orderCodes(old))
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 || got[1].OrderCode != "B" {
		t.Errorf("Load after write = %v, want [A B]", orderCodes(got))
	}
}
