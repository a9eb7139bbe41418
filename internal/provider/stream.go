package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/liliang-cn/castle/internal/domain"
)

const readChunkSize = 32 * 1024

// lineBuffer accumulates network chunks and releases complete lines.
// The trailing, possibly incomplete, line is kept for the next push.
type lineBuffer struct {
	pending []byte
}

func (b *lineBuffer) push(chunk []byte) []string {
	b.pending = append(b.pending, chunk...)

	var lines []string
	consumed := 0
	for {
		i := bytes.IndexByte(b.pending[consumed:], '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(b.pending[consumed:consumed+i]))
		consumed += i + 1
	}
	if consumed > 0 {
		n := copy(b.pending, b.pending[consumed:])
		b.pending = b.pending[:n]
	}
	return lines
}

// flush returns whatever is left once the stream has ended
func (b *lineBuffer) flush() string {
	rest := string(b.pending)
	b.pending = b.pending[:0]
	return rest
}

// lineHandler processes one line. stop ends the stream early without error.
type lineHandler func(line string) (stop bool, err error)

// scanLines reads r incrementally and feeds every line to handle
func scanLines(r io.Reader, handle lineHandler) error {
	var lb lineBuffer
	buf := make([]byte, readChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range lb.push(buf[:n]) {
				stop, herr := handle(line)
				if herr != nil {
					return herr
				}
				if stop {
					return nil
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read response stream: %w", err)
		}
	}

	if rest := lb.flush(); strings.TrimSpace(rest) != "" {
		_, err := handle(rest)
		return err
	}
	return nil
}

// openStream sends a POST request and returns the response body for
// incremental reading. Non-2xx responses are turned into errors.
func openStream(ctx context.Context, client *http.Client, name, url string, header http.Header, body []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%s error: %d - %s: %w", name, resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProviderStatus)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%s error: %w", name, domain.ErrNoResponseBody)
	}

	return resp.Body, nil
}
