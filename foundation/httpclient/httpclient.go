// Package httpclient provides basic http functions
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// StatusError is returned when a server answers with a status other than 200
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// New returns an http.Client that gives up on requests after timeout
func New(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// GetBytes retrieves the body of url using a simple GET request
func GetBytes(ctx context.Context, log *log.Logger, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		innerErr := resp.Body.Close()
		if innerErr != nil {
			log.Printf("error closing http response body. error: %v\n", innerErr)
		}
	}()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: truncate(buf.String(), 200)}
	}
	return buf.Bytes(), nil
}

// GetJSON retrieves url and decodes the json body into target
func GetJSON(ctx context.Context, log *log.Logger, client *http.Client, url string, target interface{}) error {
	body, err := GetBytes(ctx, log, client, url)
	if err != nil {
		return err
	}
	err = json.Unmarshal(body, target)
	if err != nil {
		return fmt.Errorf("unable to decode json from %s: %w", url, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
