// Package loader reads documents from text, URLs and files into plain text
// ready for splitting.
package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/liliang-cn/castle/internal/domain"
)

const maxFetchBytes = 20 << 20

// Document is loaded text with provenance metadata
type Document struct {
	Text       string
	Metadata   map[string]any
	SourceType string
	FileName   string
}

// Loader extracts text from the supported sources
type Loader struct {
	client *http.Client
}

// New creates a loader. client is used for URL fetches.
func New(client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{client: client}
}

// LoadText wraps raw text. Caller metadata is kept and the type is set to text.
func (l *Loader) LoadText(text string, metadata map[string]any) Document {
	md := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}
	md[domain.MetadataKeyType] = domain.SourceTypeText
	return Document{Text: text, Metadata: md, SourceType: domain.SourceTypeText}
}

// LoadURL fetches url and uses the response body as plain text
func (l *Loader) LoadURL(ctx context.Context, url string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("invalid url %q: %w", url, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Document{}, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", url, err)
	}

	return Document{
		Text: string(body),
		Metadata: map[string]any{
			domain.MetadataKeySource: url,
			domain.MetadataKeyType:   domain.SourceTypeWeb,
		},
		SourceType: domain.SourceTypeWeb,
	}, nil
}

// LoadFile reads a local file by extension
func (l *Loader) LoadFile(path string) (Document, error) {
	sourceType, err := sourceTypeFor(path)
	if err != nil {
		return Document{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return l.load(path, filepath.Base(path), sourceType, raw)
}

// LoadContent loads an uploaded file. PDF and DOCX content is base64
// encoded; text formats are taken as-is.
func (l *Loader) LoadContent(filename, content string) (Document, error) {
	sourceType, err := sourceTypeFor(filename)
	if err != nil {
		return Document{}, err
	}

	raw := []byte(content)
	if sourceType == domain.SourceTypePDF || sourceType == domain.SourceTypeDOCX {
		raw, err = base64.StdEncoding.DecodeString(stripDataURL(content))
		if err != nil {
			return Document{}, fmt.Errorf("%s content is not valid base64: %w", filename, err)
		}
	}
	return l.load(filename, filepath.Base(filename), sourceType, raw)
}

func (l *Loader) load(source, fileName, sourceType string, raw []byte) (Document, error) {
	var text string
	switch sourceType {
	case domain.SourceTypePDF:
		text = extractPDF(raw, fileName)
	case domain.SourceTypeDOCX:
		var err error
		text, err = extractDOCX(raw)
		if err != nil {
			return Document{}, fmt.Errorf("failed to read %s: %w", fileName, err)
		}
	default:
		text = string(raw)
	}

	return Document{
		Text: text,
		Metadata: map[string]any{
			domain.MetadataKeySource:   source,
			domain.MetadataKeyFileName: fileName,
			domain.MetadataKeyType:     sourceType,
		},
		SourceType: sourceType,
		FileName:   fileName,
	}, nil
}

func sourceTypeFor(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt", ".md":
		return domain.SourceTypeText, nil
	case ".pdf":
		return domain.SourceTypePDF, nil
	case ".docx":
		return domain.SourceTypeDOCX, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, ext)
	}
}

// stripDataURL removes a "data:...;base64," prefix added by browsers
func stripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var buf bytes.Buffer
	emptyCount := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}
	return strings.TrimSpace(buf.String())
}
