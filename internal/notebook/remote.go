package notebook

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const changeEventType = "note-change"

// APIError is a non-2xx response from the notes API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notes api: %d %s", e.StatusCode, e.Message)
}

// RemoteSource talks to the notes API rooted at baseURL, for example
// http://localhost:4000/api.
type RemoteSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteSource validates baseURL. A nil client selects http.DefaultClient.
func NewRemoteSource(baseURL string, httpClient *http.Client) (*RemoteSource, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("notebook: invalid api url %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("notebook: api url %q must use http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteSource{baseURL: trimmed, httpClient: httpClient}, nil
}

func (s *RemoteSource) List(ctx context.Context) ([]Note, error) {
	var listed []Note
	if err := s.do(ctx, http.MethodGet, "/notes", nil, &listed); err != nil {
		return nil, err
	}
	if listed == nil {
		listed = []Note{}
	}
	return listed, nil
}

func (s *RemoteSource) Create(ctx context.Context, payload Payload) (Note, error) {
	var created Note
	if err := s.do(ctx, http.MethodPost, "/notes", payload, &created); err != nil {
		return Note{}, err
	}
	return created, nil
}

func (s *RemoteSource) Update(ctx context.Context, id string, payload Payload) (Note, error) {
	var updated Note
	if err := s.do(ctx, http.MethodPut, notePath(id), payload, &updated); err != nil {
		return Note{}, err
	}
	return updated, nil
}

func (s *RemoteSource) Delete(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, notePath(id), nil, nil)
}

func notePath(id string) string {
	return "/notes/" + url.PathEscape(id)
}

func (s *RemoteSource) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := s.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return decodeAPIError(response)
	}
	if response.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeAPIError prefers the server's error field and falls back to the
// status text when the body is not the expected JSON shape.
func decodeAPIError(response *http.Response) error {
	apiErr := &APIError{
		StatusCode: response.StatusCode,
		Message:    http.StatusText(response.StatusCode),
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}

// Watch subscribes to the API change feed. Heartbeats are swallowed.
func (s *RemoteSource) Watch(ctx context.Context) (<-chan Change, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/notes/events", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build change feed request: %w", err)
	}
	request.Header.Set("Accept", "text/event-stream")

	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("open change feed: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		defer response.Body.Close()
		return nil, decodeAPIError(response)
	}

	changes := make(chan Change)
	go func() {
		defer close(changes)
		defer response.Body.Close()
		readChangeFeed(ctx, response.Body, changes)
	}()
	return changes, nil
}

type changeEventPayload struct {
	NoteIDs   []string `json:"noteIds"`
	Operation string   `json:"operation"`
}

func readChangeFeed(ctx context.Context, body io.Reader, changes chan<- Change) {
	scanner := bufio.NewScanner(body)
	eventType := ""
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventType == changeEventType && data.Len() > 0 {
				var payload changeEventPayload
				if err := json.Unmarshal([]byte(data.String()), &payload); err == nil {
					select {
					case changes <- Change{Operation: payload.Operation, NoteIDs: payload.NoteIDs}:
					case <-ctx.Done():
						return
					}
				}
			}
			eventType = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}
