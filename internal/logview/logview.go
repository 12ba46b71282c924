// Package logview fetches and formats service logs for the log tab.
package logview

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Entry is one log line as the backend reports it.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Service string    `json:"service"`
	Message string    `json:"message"`
}

var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// Client reads logs from the managed backend.
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

// Tail returns the newest entries for a service, optionally limited.
func (c *Client) Tail(ctx context.Context, service string, limit int) ([]Entry, error) {
	q := url.Values{}
	if service != "" {
		q.Set("service", service)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := c.base + "/api/logs"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
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
		return nil, fmt.Errorf("log fetch: status %d", resp.StatusCode)
	}
	var out struct {
		Entries []Entry `json:"entries"`
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// AtLeast keeps entries at or above the given level; unknown levels pass
// through so nothing silently disappears from the tab.
func AtLeast(entries []Entry, level string) []Entry {
	min, ok := levelRank[strings.ToLower(level)]
	if !ok {
		return entries
	}
	out := []Entry{}
	for _, e := range entries {
		rank, known := levelRank[strings.ToLower(e.Level)]
		if !known || rank >= min {
			out = append(out, e)
		}
	}
	return out
}

// Format renders one entry as a log tab line.
func Format(e Entry) string {
	return fmt.Sprintf("%s %-5s %-12s %s",
		e.Time.UTC().Format("15:04:05"), strings.ToUpper(e.Level), e.Service, e.Message)
}
