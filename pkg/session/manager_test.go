package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/sessionmux/pkg/adapters/redis"
	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/ports"
	"github.com/aretw0/sessionmux/pkg/session"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	ports.SessionStore
}

func (s SlowStore) Save(ctx context.Context, key string, payload domain.Payload, ttl time.Duration, mustCreate bool) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	return s.SessionStore.Save(ctx, key, payload, ttl, mustCreate)
}

func (s SlowStore) Load(ctx context.Context, key string) (domain.Payload, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	return s.SessionStore.Load(ctx, key)
}

// staticRouter routes everything to one store and knows stores by name.
type staticRouter struct {
	route  ports.SessionStore
	stores map[string]ports.SessionStore
}

func newRouter(route ports.SessionStore, others ...ports.SessionStore) staticRouter {
	r := staticRouter{route: route, stores: map[string]ports.SessionStore{route.Name(): route}}
	for _, s := range others {
		r.stores[s.Name()] = s
	}
	return r
}

func (r staticRouter) Route(ctx context.Context, key string) ports.SessionStore { return r.route }
func (r staticRouter) Store(name string) (ports.SessionStore, bool) {
	s, ok := r.stores[name]
	return s, ok
}

func increment(ctx context.Context) func(*session.Session) error {
	return func(s *session.Session) error {
		n, _ := s.Get(ctx, "counter")
		f, _ := n.(float64)
		s.Set(ctx, "counter", f+1)
		return nil
	}
}

func TestManager_Locking(t *testing.T) {
	store := SlowStore{newMemoryStore(t)}
	manager := session.NewManager(newRouter(store))
	ctx := context.Background()

	// Initial save
	s, err := manager.Update(ctx, "", increment(ctx))
	require.NoError(t, err)
	key := s.Key()
	require.NotEmpty(t, key)

	var wg sync.WaitGroup
	concurrentWrites := 10

	// Read-Modify-Write without locking would lose updates.
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, key, increment(ctx))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, float64(concurrentWrites+1), loaded["counter"])
}

func TestManager_DistributedLocking(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := SlowStore{newMemoryStore(t)}
	ctx := context.Background()

	// Two replicas share the store and the lock namespace but not their local locks.
	replicas := []*session.Manager{
		session.NewManager(newRouter(store), session.WithLocker(redis.NewLocker(client, "test:"))),
		session.NewManager(newRouter(store), session.WithLocker(redis.NewLocker(client, "test:"))),
	}

	s, err := replicas[0].Update(ctx, "", increment(ctx))
	require.NoError(t, err)
	key := s.Key()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(m *session.Manager) {
			defer wg.Done()
			_, err := m.Update(ctx, key, increment(ctx))
			assert.NoError(t, err)
		}(replicas[i%2])
	}
	wg.Wait()

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 11.0, loaded["counter"])
	assert.False(t, mr.Exists("test:lock:"+key), "lock released")
}

func TestManager_UpdateWithoutChangesDoesNotWrite(t *testing.T) {
	store := newMemoryStore(t)
	manager := session.NewManager(newRouter(store))

	s, err := manager.Update(context.Background(), "", func(*session.Session) error { return nil })
	require.NoError(t, err)
	assert.False(t, s.Bound())

	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestManager_SnapshotRestore(t *testing.T) {
	current := newMemoryStore(t)
	ctx := context.Background()

	manager := session.NewManager(newRouter(current))
	s := manager.Open(ctx, "")
	s.Set(ctx, "cart", "3 items")
	require.NoError(t, manager.Save(ctx, s, false))

	data, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "client", "snapshots never carry a connection")

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	restored := manager.Restore(ctx, snap)
	assert.Equal(t, s.Key(), restored.Key())
	assert.Equal(t, current, restored.Store())
	v, _ := restored.Get(ctx, "cart")
	assert.Equal(t, "3 items", v)
}

func TestManager_RestoreUnknownStoreRoutesAgain(t *testing.T) {
	current := newMemoryStore(t)
	ctx := context.Background()
	manager := session.NewManager(newRouter(current))

	restored := manager.Restore(ctx, session.Snapshot{Key: "k", Store: "retired"})
	assert.Equal(t, current, restored.Store())
}

func TestManager_Delete(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	manager := session.NewManager(newRouter(store))

	s, err := manager.Update(ctx, "", func(s *session.Session) error {
		s.Set(ctx, "a", "b")
		return nil
	})
	require.NoError(t, err)
	key := s.Key()

	require.NoError(t, manager.Delete(ctx, s))
	assert.False(t, s.Bound())
	exists, _ := store.Exists(ctx, key)
	assert.False(t, exists)
}
