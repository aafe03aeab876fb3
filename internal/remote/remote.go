package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ErrFetch marks every failure to obtain a live version.
var ErrFetch = errors.New("fetching version")

// maxBody caps how much of a version response is read. A version is a short
// decimal string; anything larger is not a version.
const maxBody = 4 << 10

// StatusError records a non-200 reply from a version endpoint.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.URL, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrFetch
}

// Source retrieves the published version identifiers.
type Source struct {
	client    *http.Client
	userAgent string
}

// NewSource returns a Source issuing requests through client. A nil client
// uses http.DefaultClient.
func NewSource(client *http.Client, userAgent string) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{client: client, userAgent: userAgent}
}

// FetchVersion issues one GET against url and returns the trimmed body.
// Any failure wraps ErrFetch.
func (s *Source) FetchVersion(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", ErrFetch, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: url, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrFetch, url, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ParseVersion converts a version body to an integer. A failure wraps ErrFetch
// so callers handle it exactly like a failed request.
// Only unsigned decimal digits are accepted.
func ParseVersion(body string) (int, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || strings.TrimLeft(trimmed, "0123456789") != "" {
		return 0, fmt.Errorf("%w: malformed version %q", ErrFetch, body)
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed version %q", ErrFetch, body)
	}
	return v, nil
}

// Live fetches and parses the version published at url.
func (s *Source) Live(ctx context.Context, url string) (int, error) {
	body, err := s.FetchVersion(ctx, url)
	if err != nil {
		return 0, err
	}
	return ParseVersion(body)
}
