// Package feed fetches and formats the activity feed tab. Pure display
// glue: whatever the backend returns is shown.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Entry is one activity feed row.
type Entry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// Client reads the feed from the managed backend.
type Client struct {
	base   string
	client *http.Client
}

func NewClient(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), client: httpClient}
}

// Recent returns the newest entries, most recent first.
func (c *Client) Recent(ctx context.Context, limit int) ([]Entry, error) {
	u := c.base + "/api/feed"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch: status %d", resp.StatusCode)
	}
	var out struct {
		Entries []Entry `json:"entries"`
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Format renders one entry as a feed line.
func Format(e Entry, now time.Time) string {
	who := e.Actor
	if who == "" {
		who = e.Kind
	}
	return fmt.Sprintf("%-8s %-10s %s", Relative(e.CreatedAt, now), who, e.Summary)
}

// Relative renders a feed timestamp the way the tab displays it.
func Relative(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
