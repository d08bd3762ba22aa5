package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/boardroom-ai/boardroom/debate"
	internalstrings "github.com/boardroom-ai/boardroom/internal/strings"
	"github.com/boardroom-ai/boardroom/stream"
)

// Client calls the debate API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the given address or URL.
func NewClient(addr string) *Client {
	baseURL := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{baseURL: baseURL, client: &http.Client{}}
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var response pingResponse
	return c.get(ctx, "/ping", &response)
}

// Start launches a new debate session and its worker.
func (c *Client) Start(ctx context.Context, topic string, maxIterations int) (debate.Session, error) {
	var response startResponse
	payload := startRequest{Topic: topic, MaxIterations: maxIterations}
	if err := c.post(ctx, "/api/debates", payload, &response); err != nil {
		return debate.Session{}, err
	}
	return response.Session, nil
}

// List returns one page of sessions, newest first.
func (c *Client) List(ctx context.Context, page, limit int, status string) (debate.SessionPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if !internalstrings.IsBlank(status) {
		query.Set("status", status)
	}
	path := "/api/debates"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var response listResponse
	if err := c.get(ctx, path, &response); err != nil {
		return debate.SessionPage{}, err
	}
	return debate.SessionPage{
		Sessions: response.Debates,
		Page:     response.Pagination.Page,
		Limit:    response.Pagination.Limit,
		Total:    response.Pagination.Total,
		Pages:    response.Pagination.Pages,
	}, nil
}

// Status returns a session with its outputs and exchanges.
func (c *Client) Status(ctx context.Context, sessionID string) (debate.Session, []debate.AgentOutput, []debate.Exchange, error) {
	var response statusResponse
	if err := c.get(ctx, "/api/debates/"+url.PathEscape(sessionID)+"/status", &response); err != nil {
		return debate.Session{}, nil, nil, err
	}
	return response.Session, response.Outputs, response.Exchanges, nil
}

// Stop terminates a session's worker and marks the session failed.
func (c *Client) Stop(ctx context.Context, sessionID string) (debate.Session, error) {
	var response stopResponse
	if err := c.post(ctx, "/api/debates/"+url.PathEscape(sessionID)+"/stop", struct{}{}, &response); err != nil {
		return debate.Session{}, err
	}
	return response.Session, nil
}

// Report fetches the formatted text report for a session.
func (c *Client) Report(ctx context.Context, sessionID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/debates/"+url.PathEscape(sessionID)+"/report", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", readErrorResponse(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Stats returns aggregate session statistics.
func (c *Client) Stats(ctx context.Context) (debate.Stats, error) {
	var response debate.Stats
	if err := c.get(ctx, "/api/debates/stats", &response); err != nil {
		return debate.Stats{}, err
	}
	return response, nil
}

// Stream subscribes to a session's live events. The events channel closes
// when the stream ends; the error channel then carries nil or the failure.
func (c *Client) Stream(ctx context.Context, sessionID string) (<-chan stream.Event, <-chan error) {
	events := make(chan stream.Event, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(events)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/debates/"+url.PathEscape(sessionID)+"/stream", nil)
		if err != nil {
			errCh <- err
			return
		}
		req.Header.Set("Accept", "text/event-stream")
		resp, err := c.client.Do(req)
		if err != nil {
			errCh <- err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			errCh <- readErrorResponse(resp)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			var event stream.Event
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				errCh <- fmt.Errorf("decode stream event: %w", err)
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				errCh <- nil
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				errCh <- nil
				return
			}
			errCh <- err
			return
		}
		errCh <- nil
	}()

	return events, errCh
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) post(ctx context.Context, path string, payload any, dest any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return readErrorResponse(resp)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func readErrorResponse(resp *http.Response) error {
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if message, ok := payload["error"]; ok {
			return fmt.Errorf("boardroom error: %s", message)
		}
	}
	return fmt.Errorf("boardroom error: %s", resp.Status)
}
