// Package webclient makes the outbound calls to the inventory website.
// Every call is best-effort: non-2xx statuses and transport errors are
// logged and turn into empty results instead of reaching game logic.
// The single exception is the equipped-inventory fetch, whose error is
// returned so its caller can run its own retry loop.
package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kfodor/coinledger/internal/config"
)

type Client struct {
	http     *http.Client
	protocol string
	hostname string
	apiKey   string
}

func New(cfg config.WebConfig) *Client {
	return &Client{
		// The timeout bounds every outbound call so a slow site cannot
		// stall the reward or notification pipeline.
		http:     &http.Client{Timeout: cfg.Timeout},
		protocol: strings.TrimSpace(cfg.Protocol),
		hostname: strings.TrimSpace(cfg.Hostname),
		apiKey:   cfg.APIKey,
	}
}

// apiURL trims whitespace to avoid URI parse errors from sloppy config.
func (c *Client) apiURL(pathname string) string {
	return fmt.Sprintf("%s://%s%s", c.protocol, c.hostname, pathname)
}

func (c *Client) get(ctx context.Context, pathname string) ([]byte, error) {
	url := c.apiURL(pathname)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read GET %s: %w", url, err)
	}

	return body, nil
}

// post sends a JSON payload and decodes the response into out when out
// is non-nil and the body is non-empty. Errors are logged here and
// swallowed; callers only see the ok flag.
func (c *Client) post(ctx context.Context, pathname string, payload, out any) bool {
	url := c.apiURL(pathname)

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "url", url, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		slog.Error("build request", "url", url, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("POST failed", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		slog.Error("POST unauthorized, check the configured API key", "url", url)
		return false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("POST failed", "url", url, "status", resp.StatusCode)
		return false
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("read response", "url", url, "error", err)
		return false
	}

	if out == nil || len(respBody) == 0 {
		return true
	}

	err = json.Unmarshal(respBody, out)
	if err != nil {
		slog.Error("decode response", "url", url, "error", err)
		return false
	}

	return true
}

// EquippedInventory fetches the player's equipped-item document. Unlike
// the other calls this returns its error; the inventory service retries
// up to 3 attempts before giving up silently.
func (c *Client) EquippedInventory(ctx context.Context, steamID uint64) ([]byte, error) {
	doc, err := c.get(ctx, fmt.Sprintf("/api/equipped/v3/%d.json", steamID))
	if err != nil {
		slog.Error("fetch equipped inventory", "steam_id", steamID, "error", err)
		return nil, err
	}

	return doc, nil
}

// InventoryTimestamp returns the site's last-modified Unix timestamp for
// the player's inventory, or zero when unavailable.
func (c *Client) InventoryTimestamp(ctx context.Context, steamID uint64) int64 {
	body, err := c.get(ctx, fmt.Sprintf("/api/inventory-timestamp/%d", steamID))
	if err != nil {
		slog.Debug("fetch inventory timestamp", "steam_id", steamID, "error", err)
		return 0
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		slog.Error("parse inventory timestamp", "steam_id", steamID, "error", err)
		return 0
	}

	return ts
}

type signInResponse struct {
	Token string `json:"token"`
}

// SignIn exchanges the API key for a one-time login token. Empty result
// means the exchange failed.
func (c *Client) SignIn(ctx context.Context, userID uint64) string {
	var resp signInResponse

	ok := c.post(ctx, "/api/sign-in", map[string]string{
		"apiKey": c.apiKey,
		"userId": strconv.FormatUint(userID, 10),
	}, &resp)
	if !ok {
		return ""
	}

	return resp.Token
}

// SignInCallbackURL is where the token from SignIn is redeemed.
func (c *Client) SignInCallbackURL(token string) string {
	return c.apiURL("/api/sign-in/callback") + "?token=" + token
}

// IncrementStatTrak bumps an item's StatTrak counter. No-op without an
// API key.
func (c *Client) IncrementStatTrak(ctx context.Context, userID uint64, targetUID int) {
	if c.apiKey == "" {
		return
	}

	c.post(ctx, "/api/increment-item-stattrak", map[string]any{
		"apiKey":    c.apiKey,
		"targetUid": targetUID,
		"userId":    strconv.FormatUint(userID, 10),
	}, nil)
}

// CaseDropReward asks the site to grant a case reward of the given type.
func (c *Client) CaseDropReward(ctx context.Context, userID uint64, caseType string) bool {
	return c.post(ctx, "/api/case-drop-reward", map[string]string{
		"apiKey":   c.apiKey,
		"userId":   strconv.FormatUint(userID, 10),
		"caseType": caseType,
	}, nil)
}

// DropCollected reports a collected crate; the site grants the reward in
// the website drop-reward mode. The ok result drives the in-game chat
// notice.
func (c *Client) DropCollected(ctx context.Context, collectorSteamID, killerSteamID uint64, timestamp int64) bool {
	return c.post(ctx, "/api/plugin/drop-collected", map[string]any{
		"collectorSteamId": strconv.FormatUint(collectorSteamID, 10),
		"killerSteamId":    strconv.FormatUint(killerSteamID, 10),
		"timestamp":        timestamp,
	}, nil)
}
