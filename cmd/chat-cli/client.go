package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type sessionView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type messageView struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

type exchangeView struct {
	User      messageView `json:"user"`
	Assistant messageView `json:"assistant"`
}

// apiClient talks to the chat-server HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// generation may take up to the server's llm.timeout
		http: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any, want int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) me(ctx context.Context) (string, error) {
	var out struct {
		UID string `json:"uid"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &out, http.StatusOK); err != nil {
		return "", err
	}
	return out.UID, nil
}

func (c *apiClient) listSessions(ctx context.Context) ([]sessionView, error) {
	var out []sessionView
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out, http.StatusOK)
	return out, err
}

func (c *apiClient) createSession(ctx context.Context, title string) (sessionView, error) {
	var out sessionView
	err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"title": title}, &out, http.StatusCreated)
	return out, err
}

func (c *apiClient) renameSession(ctx context.Context, sessionID, title string) error {
	return c.do(ctx, http.MethodPatch, "/api/sessions/"+sessionID, map[string]string{"title": title}, nil, http.StatusOK)
}

func (c *apiClient) deleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, nil, http.StatusOK)
}

func (c *apiClient) messages(ctx context.Context, sessionID string) ([]messageView, error) {
	var out []messageView
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/messages", nil, &out, http.StatusOK)
	return out, err
}

func (c *apiClient) send(ctx context.Context, sessionID, text string) (exchangeView, error) {
	var out exchangeView
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/messages", map[string]string{"text": text}, &out, http.StatusCreated)
	return out, err
}
