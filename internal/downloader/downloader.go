package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rlegacy/launcher/internal/logging"
	"github.com/rlegacy/launcher/internal/progress"
)

// DefaultChunkSize is the read buffer used while streaming a body to disk.
const DefaultChunkSize = 1 << 20

// ErrTransport wraps network failures while requesting or reading a body.
var ErrTransport = errors.New("transport error")

// ErrStalled is the cause recorded when no body bytes arrive within the idle
// timeout. It is always returned together with ErrTransport.
var ErrStalled = errors.New("download stalled")

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downloading %s: HTTP %d", e.URL, e.Code)
}

// Client streams remote archives to local files.
type Client struct {
	http      *http.Client
	userAgent string
	chunkSize int
	idle      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithChunkSize overrides DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithIdleTimeout aborts a transfer when the body stops arriving for d. The
// transfer as a whole is not time-limited, so a slow but steady download of
// a large bundle still completes.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idle = d }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New returns a Client using hc for requests. A nil hc uses http.DefaultClient.
func New(hc *http.Client, opts ...Option) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{http: hc, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FileName derives the local archive name from rawURL's final path segment,
// appending ".zip" when it is missing.
func FileName(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	name := path.Base(strings.TrimRight(p, "/"))
	if name == "." || name == "/" || name == "" {
		name = "download"
	}
	if !strings.HasSuffix(name, ".zip") {
		name += ".zip"
	}
	return name
}

// Download fetches rawURL into destDir and returns the written file's path.
// While the body streams, sink receives the completed fraction whenever the
// server announced a Content-Length. The sink is always hidden again before
// Download returns. Only a nil error means the file is complete.
func (c *Client) Download(ctx context.Context, rawURL, destDir string, sink progress.Sink) (string, error) {
	if sink == nil {
		sink = progress.Discard
	}
	defer sink.Report(progress.Hidden)

	destPath := filepath.Join(destDir, FileName(rawURL))
	logging.Debugf("Verbose: download start url=%s dest=%s\n", rawURL, destPath)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w: %w", rawURL, ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", destDir, err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", tmpPath, err)
	}

	sink.Report(progress.Update{Visible: true})
	written, err := c.stream(f, resp.Body, resp.ContentLength, sink, func() { cancel(ErrStalled) })
	closeErr := f.Close()
	if err != nil && errors.Is(context.Cause(ctx), ErrStalled) {
		err = fmt.Errorf("%w: %w: no data for %s", ErrTransport, ErrStalled, c.idle)
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing %s: %w", tmpPath, closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalizing %s: %w", destPath, err)
	}
	logging.Debugf("Verbose: download complete file=%s bytes=%d\n", destPath, written)

	return destPath, nil
}

// stream copies src to dst chunk by chunk. When an idle timeout is set,
// stall is called once the body has been silent for that long.
func (c *Client) stream(dst io.Writer, src io.Reader, total int64, sink progress.Sink, stall func()) (int64, error) {
	if c.idle > 0 {
		watchdog := time.AfterFunc(c.idle, stall)
		defer watchdog.Stop()
		body := src
		src = readerFunc(func(p []byte) (int, error) {
			n, err := body.Read(p)
			watchdog.Reset(c.idle)
			return n, err
		})
	}

	buf := make([]byte, c.chunkSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("writing: %w", err)
			}
			written += int64(n)
			if total > 0 {
				sink.Report(progress.Update{Fraction: float64(written) / float64(total), Visible: true})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, fmt.Errorf("%w: %w", ErrTransport, readErr)
		}
	}
	if total > 0 && written != total {
		return written, fmt.Errorf("%w: short body: got %d of %d bytes", ErrTransport, written, total)
	}
	return written, nil
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
