package kai

import (
	"context"
	"encoding/json"
	"net/http"
)

// Ping probes backend liveness. By contract it sends no credentials, so it
// also bypasses the retry loop's authorization.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/ping", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var ping PingResponse
	if err := json.NewDecoder(resp.Body).Decode(&ping); err != nil {
		return nil, err
	}
	return &ping, nil
}

// Info reports the backend build, uptime, and MCP connectivity.
func (c *Client) Info(ctx context.Context) (*InfoResponse, error) {
	var info InfoResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
