package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

// apiClient talks to a running TravelMate server.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type apiError struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// wireEvent mirrors types.StreamEvent with the payload left undecoded.
type wireEvent struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	IsFinal bool            `json:"is_final"`
}

func (c *apiClient) post(ctx context.Context, path string, req types.TourismRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, apiErr.Error)
	}
	return resp, nil
}

// Chat sends one query with the given history and returns the decoded reply.
func (c *apiClient) Chat(ctx context.Context, query string, history []types.ConversationMessage) (*types.TourismResponse, error) {
	resp, err := c.post(ctx, "/api/v1/tourism/chat", types.TourismRequest{Query: query, ConversationHistory: history})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out types.TourismResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Stream posts to the streaming endpoint and calls onStep for every
// reasoning event. It returns the body of the complete event.
func (c *apiClient) Stream(ctx context.Context, query string, history []types.ConversationMessage, onStep func(types.ReasoningStep)) (*types.TourismResponse, error) {
	resp, err := c.post(ctx, "/api/v1/tourism/chat/stream", types.TourismRequest{Query: query, ConversationHistory: history})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result *types.TourismResponse
	err = readSSE(resp.Body, func(data []byte) (bool, error) {
		var ev wireEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return false, fmt.Errorf("malformed event: %w", err)
		}
		switch ev.Type {
		case types.EventTypeReasoning:
			var step types.ReasoningStep
			if err := json.Unmarshal(ev.Data, &step); err == nil && onStep != nil {
				onStep(step)
			}
			return false, nil
		case types.EventTypeComplete:
			result = &types.TourismResponse{}
			if err := json.Unmarshal(ev.Data, result); err != nil {
				return false, fmt.Errorf("malformed complete event: %w", err)
			}
			return true, nil
		case types.EventTypeError:
			return false, errors.New(ev.Message)
		}
		return ev.IsFinal, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("stream ended without a reply")
	}
	return result, nil
}

// readSSE feeds the data field of each event to fn until fn reports done,
// fn fails or the body ends. Comment lines (heartbeats) are skipped.
func readSSE(body io.Reader, fn func(data []byte) (bool, error)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			done, err := fn(data.Bytes())
			data.Reset()
			if err != nil || done {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}
