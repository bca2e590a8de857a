package webclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	return New(testWebConfig(u.Scheme, u.Host))
}

func TestEquippedInventory_ReturnsBodyAndError(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/equipped/v3/76561198000000001.json", r.URL.Path)
		w.Write([]byte(`{"ctWeapons":{}}`))
	}))

	doc, err := c.EquippedInventory(context.Background(), 76561198000000001)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ctWeapons":{}}`, string(doc))
	assert.Equal(t, 1, calls)
}

func TestEquippedInventory_ErrorIsReturnedToCaller(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.EquippedInventory(context.Background(), 1)
	require.Error(t, err)
}

func TestInventoryTimestamp(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inventory-timestamp/42", r.URL.Path)
		w.Write([]byte("1735689600\n"))
	}))

	assert.Equal(t, int64(1735689600), c.InventoryTimestamp(context.Background(), 42))
}

func TestInventoryTimestamp_FailureReturnsZero(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.Equal(t, int64(0), c.InventoryTimestamp(context.Background(), 42))
}

func TestSignIn(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/sign-in", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-key", body["apiKey"])
		assert.Equal(t, "7", body["userId"])

		json.NewEncoder(w).Encode(map[string]string{"token": "tok123"})
	}))

	assert.Equal(t, "tok123", c.SignIn(context.Background(), 7))
}

func TestSignIn_UnauthorizedYieldsEmptyToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	assert.Equal(t, "", c.SignIn(context.Background(), 7))
}

func TestIncrementStatTrak_SkippedWithoutAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg := testWebConfig(u.Scheme, u.Host)
	cfg.APIKey = ""

	New(cfg).IncrementStatTrak(context.Background(), 7, 99)
	assert.False(t, called)
}

func TestDropCollected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/plugin/drop-collected", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "11", body["collectorSteamId"])
		assert.Equal(t, "22", body["killerSteamId"])
	}))

	assert.True(t, c.DropCollected(context.Background(), 11, 22, time.Now().Unix()))
}

func TestDropCollected_NonSuccessIsFalseNotFatal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	assert.False(t, c.DropCollected(context.Background(), 11, 22, 0))
}

func TestAPIURL_TrimsConfigWhitespace(t *testing.T) {
	cfg := testWebConfig(" https ", " inventory.example.com ")
	c := New(cfg)

	assert.Equal(t, "https://inventory.example.com/api/sign-in", c.apiURL("/api/sign-in"))
}
