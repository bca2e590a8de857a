package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfodor/coinledger/internal/config"
	"github.com/kfodor/coinledger/internal/game"
)

type fakeRefresher struct {
	mu         sync.Mutex
	calls      []uint64
	timestamps map[uint64]int64
}

func (f *fakeRefresher) Refresh(steamID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, steamID)
}

func (f *fakeRefresher) MarkTimestamp(steamID uint64, ts int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timestamps == nil {
		f.timestamps = make(map[uint64]int64)
	}
	f.timestamps[steamID] = ts
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRefresher) timestampFor(steamID uint64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timestamps[steamID]
}

type chatRecorder struct {
	mu    sync.Mutex
	toAll []string
}

func (c *chatRecorder) ToPlayer(uint64, string) {}

func (c *chatRecorder) ToAll(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toAll = append(c.toAll, msg)
}

func (c *chatRecorder) allCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.toAll)
}

func testListenerConfig() config.ListenerConfig {
	return config.ListenerConfig{
		Port:            5005,
		CaseOpenedDelay: 10 * time.Millisecond,
		RateLimitWindow: 2 * time.Second,
	}
}

type fixture struct {
	srv     *httptest.Server
	frames  *game.FrameQueue
	roster  *game.Roster
	chat    *chatRecorder
	refresh *fakeRefresher
}

func newFixture(t *testing.T, cfg config.ListenerConfig) *fixture {
	t.Helper()

	f := &fixture{
		frames:  game.NewFrameQueue(),
		roster:  game.NewRoster(),
		chat:    &chatRecorder{},
		refresh: &fakeRefresher{},
	}

	f.srv = httptest.NewServer(NewRouter(cfg, f.roster, f.frames, f.chat, f.refresh))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestRefreshInventory_AcceptedAndScheduled(t *testing.T) {
	f := newFixture(t, testListenerConfig())
	f.roster.Connect(game.Player{SteamID: 76561198000000001, Name: "alice"})

	resp := f.post(t, "/api/plugin/refresh-inventory", `{"SteamId":"76561198000000001"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	// Nothing runs until the game loop drains.
	require.Equal(t, 0, f.refresh.callCount())

	f.frames.Drain()
	assert.Equal(t, []uint64{76561198000000001}, f.refresh.calls)
}

func TestRefreshInventory_SitePayloadWithTimestamp(t *testing.T) {
	f := newFixture(t, testListenerConfig())
	f.roster.Connect(game.Player{SteamID: 11, Name: "alice"})

	// The website sends the SteamId together with its inventory
	// timestamp; both must be accepted and the timestamp recorded.
	resp := f.post(t, "/api/plugin/refresh-inventory",
		`{"SteamId":"11","LastUpdateTimestamp":1724900000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int64(1724900000), f.refresh.timestampFor(11))

	f.frames.Drain()
	assert.Equal(t, 1, f.refresh.callCount())
}

func TestRefreshInventory_TimestampOptional(t *testing.T) {
	f := newFixture(t, testListenerConfig())
	f.roster.Connect(game.Player{SteamID: 11})

	resp := f.post(t, "/api/plugin/refresh-inventory", `{"SteamId":"11"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Zero(t, f.refresh.timestampFor(11))
}

func TestRefreshInventory_BadRequests(t *testing.T) {
	f := newFixture(t, testListenerConfig())

	for _, body := range []string{
		``,
		`not json`,
		`{"SteamId":"abc"}`,
		`{"SteamId":""}`,
		`{"SteamId":"0"}`,
	} {
		resp := f.post(t, "/api/plugin/refresh-inventory", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
}

func TestRefreshInventory_UnknownPlayerIs404(t *testing.T) {
	f := newFixture(t, testListenerConfig())

	resp := f.post(t, "/api/plugin/refresh-inventory", `{"SteamId":"42"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRefreshInventory_RateLimitPerSteamID(t *testing.T) {
	f := newFixture(t, testListenerConfig())
	f.roster.Connect(game.Player{SteamID: 11})
	f.roster.Connect(game.Player{SteamID: 22})

	require.Equal(t, http.StatusOK, f.post(t, "/api/plugin/refresh-inventory", `{"SteamId":"11"}`).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, f.post(t, "/api/plugin/refresh-inventory", `{"SteamId":"11"}`).StatusCode)

	// A different player is not throttled by the first one.
	assert.Equal(t, http.StatusOK, f.post(t, "/api/plugin/refresh-inventory", `{"SteamId":"22"}`).StatusCode)

	f.frames.Drain()
	assert.Equal(t, 2, f.refresh.callCount())
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl := newRateLimiter(2 * time.Second)

	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow(7))
	assert.False(t, rl.Allow(7))

	now = now.Add(2 * time.Second)
	assert.True(t, rl.Allow(7))
}

func TestCaseOpened_DelayedBroadcast(t *testing.T) {
	f := newFixture(t, testListenerConfig())

	resp := f.post(t, "/api/plugin/case-opened",
		`{"PlayerName":"alice","ItemName":"AK-47 | Redline","Rarity":"classified","StatTrak":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The broadcast waits for the configured delay.
	f.frames.Drain()
	require.Equal(t, 0, f.chat.allCount())

	assert.Eventually(t, func() bool {
		f.frames.Drain()
		return f.chat.allCount() == 1
	}, time.Second, 5*time.Millisecond)

	f.chat.mu.Lock()
	defer f.chat.mu.Unlock()
	assert.Equal(t, "[Drop] alice unboxed: StatTrak AK-47 | Redline (Classified)", f.chat.toAll[0])
}

func TestCaseOpened_MissingFields(t *testing.T) {
	f := newFixture(t, testListenerConfig())

	for _, body := range []string{
		`{"PlayerName":"alice"}`,
		`{"ItemName":"AK-47"}`,
		`{"PlayerName":" ","ItemName":"AK-47"}`,
	} {
		resp := f.post(t, "/api/plugin/case-opened", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
}

func TestOptions_AnsweredWithCORS(t *testing.T) {
	f := newFixture(t, testListenerConfig())

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/plugin/refresh-inventory", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestUnknownRoutesAndMethods(t *testing.T) {
	f := newFixture(t, testListenerConfig())

	resp := f.post(t, "/api/plugin/unknown", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	get, err := http.Get(f.srv.URL + "/api/plugin/refresh-inventory")
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, testListenerConfig())

	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecoverer_ConvertsPanicTo500(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/plugin/case-opened", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnboxAnnouncement_RarityLabels(t *testing.T) {
	tests := []struct {
		rarity string
		want   string
	}{
		{"covert", "[Drop] bob unboxed: M4A4 (Covert)"},
		{"milspec", "[Drop] bob unboxed: M4A4 (Mil-Spec)"},
		{"gold", "[Drop] bob unboxed: M4A4 (Exceedingly Rare)"},
		{"", "[Drop] bob unboxed: M4A4"},
		{"mythical", "[Drop] bob unboxed: M4A4 (mythical)"},
	}

	for _, tc := range tests {
		got := unboxAnnouncement(caseOpenedRequest{PlayerName: "bob", ItemName: "M4A4", Rarity: tc.rarity})
		assert.Equal(t, tc.want, got)
	}
}
