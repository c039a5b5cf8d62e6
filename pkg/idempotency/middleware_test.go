package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu          sync.Mutex
	locks       map[string]bool
	resps       map[string]Response
	failWith    error
	rememberErr error
}

func newMemStore() *memStore {
	return &memStore{locks: map[string]bool{}, resps: map[string]Response{}}
}

func (m *memStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memStore) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

func (m *memStore) Remember(_ context.Context, scope, key string, resp Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rememberErr != nil {
		return m.rememberErr
	}
	m.resps[scope+key] = resp
	return nil
}

func (m *memStore) Recall(_ context.Context, scope, key string) (Response, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return Response{}, false, m.failWith
	}
	r, ok := m.resps[scope+key]
	return r, ok, nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	return postBody(h, key, "")
}

func postBody(h http.Handler, key, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	if key != "" {
		r.Header.Set(Header, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func counting(status int, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"n":1}`))
	})
}

func TestReplaysStoredResponse(t *testing.T) {
	calls := 0
	h := Middleware(newMemStore(), discard)(counting(http.StatusOK, &calls))

	first := post(h, "k1")
	second := post(h, "k1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Empty(t, first.Header().Get(ReplayedHeader))
}

func TestDomainRejectionIsReplayedToo(t *testing.T) {
	calls := 0
	h := Middleware(newMemStore(), discard)(counting(http.StatusConflict, &calls))

	post(h, "k1")
	rec := post(h, "k1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServerErrorReleasesKey(t *testing.T) {
	calls := 0
	h := Middleware(newMemStore(), discard)(counting(http.StatusInternalServerError, &calls))

	post(h, "k1")
	post(h, "k1")

	assert.Equal(t, 2, calls)
}

func TestInFlightDuplicateGetsConflict(t *testing.T) {
	store := newMemStore()
	locked, err := store.TryLock(context.Background(), "POST /orders", "k1")
	require.NoError(t, err)
	require.True(t, locked)

	calls := 0
	rec := post(Middleware(store, discard)(counting(http.StatusOK, &calls)), "k1")

	assert.Equal(t, 0, calls)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWithoutKeyPassesThrough(t *testing.T) {
	calls := 0
	h := Middleware(newMemStore(), discard)(counting(http.StatusOK, &calls))

	post(h, "")
	post(h, "")

	assert.Equal(t, 2, calls)
}

func TestStoreOutageFailsOpen(t *testing.T) {
	store := newMemStore()
	store.failWith = errors.New("redis: connection refused")
	calls := 0
	h := Middleware(store, discard)(counting(http.StatusOK, &calls))

	rec := post(h, "k1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPanickingHandlerReleasesKey(t *testing.T) {
	calls := 0
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			panic("database connection lost")
		}
		w.WriteHeader(http.StatusOK)
	})
	h := middleware.Recoverer(Middleware(newMemStore(), discard)(flaky))

	first := post(h, "k1")
	second := post(h, "k1")

	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, calls)
}

func TestFailedRememberReleasesKey(t *testing.T) {
	store := newMemStore()
	store.rememberErr = errors.New("redis: timeout")
	calls := 0
	h := Middleware(store, discard)(counting(http.StatusOK, &calls))

	post(h, "k1")
	rec := post(h, "k1")

	assert.Equal(t, 2, calls)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestKeyReusedWithDifferentBody(t *testing.T) {
	var seen []string
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = append(seen, string(b))
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(newMemStore(), discard)(echo)

	first := postBody(h, "k1", `{"status":"pending"}`)
	same := postBody(h, "k1", `{"status":"pending"}`)
	other := postBody(h, "k1", `{"status":"completed"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "true", same.Header().Get(ReplayedHeader))
	assert.Equal(t, http.StatusUnprocessableEntity, other.Code)
	assert.Equal(t, []string{`{"status":"pending"}`}, seen, "handler sees the body and runs once")
}
