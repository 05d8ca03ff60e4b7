package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-yatube/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func asViewer(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id != "" {
			c.Locals("user_id", id)
		}
		return c.Next()
	}
}

func newApp(m *memoryStore, c cache.Cache, viewer string) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, newComposer(m), c, zap.NewNop(), asViewer(viewer), asViewer(viewer))
	return app
}

func get(t *testing.T, app *fiber.App, path string) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIndexServesCachedPageWithinTTL(t *testing.T) {
	m := newMemoryStore()
	m.publish("leo-id", "first", nil)
	m.publish("leo-id", "second", nil)

	app := newApp(m, cache.NewMemoryCache(8, time.Minute), "")

	resp, before := get(t, app, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Contains(t, before, "second")

	m.posts = m.posts[1:]

	resp, after := get(t, app, "/?page=1")
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Equal(t, before, after)
	assert.Equal(t, 1, m.pages)
}

func TestIndexRecomputesAfterTTL(t *testing.T) {
	m := newMemoryStore()
	m.publish("leo-id", "first", nil)

	app := newApp(m, cache.NewMemoryCache(8, 50*time.Millisecond), "")

	_, before := get(t, app, "/")
	m.publish("leo-id", "late", nil)
	time.Sleep(120 * time.Millisecond)

	resp, after := get(t, app, "/")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "late")
}

func TestIndexLaterPagesAreLive(t *testing.T) {
	m := newMemoryStore()
	for i := 0; i < 3; i++ {
		m.publish("leo-id", "post", nil)
	}

	app := newApp(m, cache.NewMemoryCache(8, time.Minute), "")

	get(t, app, "/?page=2")
	get(t, app, "/?page=2")
	assert.Equal(t, 2, m.pages)
}

func TestIndexSurvivesCacheOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	m := newMemoryStore()
	m.publish("leo-id", "first", nil)

	app := newApp(m, cache.NewRedisCache(rdb, time.Minute), "")
	mr.Close()

	resp, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "first")
}

// unreadableCache fails every read and accepts every write.
type unreadableCache struct {
	*cache.MemoryCache
}

func (unreadableCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("read timeout")
}

func TestIndexLogsCacheReadFailure(t *testing.T) {
	m := newMemoryStore()
	m.publish("leo-id", "first", nil)

	core, logs := observer.New(zap.WarnLevel)
	app := fiber.New()
	c := unreadableCache{cache.NewMemoryCache(8, time.Minute)}
	RegisterRoutes(app, newComposer(m), c, zap.New(core), asViewer(""), asViewer(""))

	resp, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Contains(t, body, "first")

	entries := logs.FilterMessage("feed cache unavailable").All()
	require.Len(t, entries, 1)
	assert.Equal(t, IndexKey, entries[0].ContextMap()["key"])
}

func TestIndexUsesRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	m := newMemoryStore()
	m.publish("leo-id", "first", nil)

	c := cache.NewRedisCache(rdb, time.Minute)
	app := newApp(m, c, "")

	_, body := get(t, app, "/")
	cached, ok, err := c.Get(context.Background(), IndexKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, body, string(cached))
}

func TestFeedRoutes(t *testing.T) {
	m := newMemoryStore()
	m.follow("mia-id", "leo-id")
	m.publish("leo-id", "hello", nil)

	app := newApp(m, cache.NewMemoryCache(8, time.Minute), "mia-id")

	resp, body := get(t, app, "/profile/leo")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"following":true`)

	resp, body = get(t, app, "/follow")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "hello")

	resp, _ = get(t, app, "/group/dogs")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, app, "/profile/ghost")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFollowRequiresViewer(t *testing.T) {
	app := newApp(newMemoryStore(), cache.NewMemoryCache(8, time.Minute), "")

	resp, _ := get(t, app, "/follow")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
