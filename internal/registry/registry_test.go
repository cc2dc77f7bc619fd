package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRegistry serves canned JSON bodies keyed by request path and counts hits.
func mockRegistry(t *testing.T, routes map[string]any) (*httptest.Server, *sync.Map) {
	t.Helper()
	hits := &sync.Map{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter, _ := hits.LoadOrStore(r.URL.Path, new(int32))
		atomic.AddInt32(counter.(*int32), 1)

		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func hitCount(hits *sync.Map, path string) int32 {
	v, ok := hits.Load(path)
	if !ok {
		return 0
	}
	return atomic.LoadInt32(v.(*int32))
}

func TestFetchVersionCreatedAt(t *testing.T) {
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	srv, hits := mockRegistry(t, map[string]any{
		"/api/v1/versions/rack.json": []map[string]any{
			{"number": "3.1.0", "created_at": published, "platform": "ruby"},
			{"number": "3.0.9", "created_at": published.AddDate(0, -2, 0), "platform": "ruby"},
		},
	})
	client := NewClient(srv.URL)
	ctx := context.Background()

	got, err := client.FetchVersionCreatedAt(ctx, "rack", "3.1.0")
	require.NoError(t, err)
	assert.True(t, got.Equal(published))

	_, err = client.FetchVersionCreatedAt(ctx, "rack", "9.9.9")
	assert.ErrorIs(t, err, ErrVersionNotFound)

	// Both lookups share one memoized request.
	assert.Equal(t, int32(1), hitCount(hits, "/api/v1/versions/rack.json"))
}

func TestFetchVersionCreatedAtUnknownPackage(t *testing.T) {
	srv, _ := mockRegistry(t, map[string]any{})
	client := NewClient(srv.URL)

	_, err := client.FetchVersionCreatedAt(context.Background(), "missing", "1.0.0")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestFetchVersionsConcurrentCallersShareRequest(t *testing.T) {
	srv, hits := mockRegistry(t, map[string]any{
		"/api/v1/versions/rails.json": []map[string]any{
			{"number": "7.1.0", "created_at": time.Now().UTC()},
		},
	})
	client := NewClient(srv.URL)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			_, err := client.FetchVersionCreatedAt(context.Background(), "rails", "7.1.0")
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), hitCount(hits, "/api/v1/versions/rails.json"))
}

func TestFetchOwners(t *testing.T) {
	srv, _ := mockRegistry(t, map[string]any{
		"/api/v1/gems/rack/owners.json": []map[string]any{
			{"handle": "alice"},
			{"handle": nil},
			{"handle": ""},
			{"handle": "bob"},
		},
	})
	client := NewClient(srv.URL)

	owners, err := client.FetchOwners(context.Background(), "rack")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, owners)
}

func TestFetchGemInfo(t *testing.T) {
	srv, _ := mockRegistry(t, map[string]any{
		"/api/v1/gems/tiny.json": map[string]any{
			"name":               "tiny",
			"downloads":          42,
			"version":            "0.1.0",
			"version_created_at": "2020-01-02T03:04:05.000Z",
		},
	})
	client := NewClient(srv.URL)

	info, err := client.FetchGemInfo(context.Background(), "tiny")
	require.NoError(t, err)
	assert.Equal(t, "tiny", info.Name)
	assert.Equal(t, int64(42), info.Downloads)
}

func TestClientSendsHeaders(t *testing.T) {
	var gotAccept, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", WithUserAgent("safeupdate-test"))
	owners, err := client.FetchOwners(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, owners)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "safeupdate-test", gotUA)
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithTimeout(20*time.Millisecond))
	_, err := client.FetchOwners(context.Background(), "slow")
	assert.Error(t, err)
}

func TestClientRateLimitHonorsContext(t *testing.T) {
	srv, _ := mockRegistry(t, map[string]any{"/api/v1/gems/a/owners.json": []any{}})
	client := NewClient(srv.URL, WithRateLimit(0.001))

	_, err := client.FetchOwners(context.Background(), "a")
	require.NoError(t, err) // first token is available immediately

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = client.FetchOwners(ctx, "a")
	assert.Error(t, err)
}

func TestMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchGemInfo(context.Background(), "broken")
	assert.Error(t, err)
}
