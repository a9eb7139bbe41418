package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/liliang-cn/castle/internal/domain"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, `<?xml version="1.0"?><w:document><w:body>`+body+`</w:body></w:document>`)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadText(t *testing.T) {
	l := New(nil)
	doc := l.LoadText("hello", map[string]any{"source": "note", domain.MetadataKeyType: "ignored"})

	if doc.Text != "hello" || doc.SourceType != domain.SourceTypeText {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.Metadata["source"] != "note" || doc.Metadata[domain.MetadataKeyType] != domain.SourceTypeText {
		t.Errorf("unexpected metadata: %v", doc.Metadata)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	l := New(nil)

	mdPath := filepath.Join(dir, "notes.md")
	os.WriteFile(mdPath, []byte("# Title\n\nbody"), 0o644)

	docxPath := filepath.Join(dir, "report.docx")
	os.WriteFile(docxPath, buildDOCX(t, `<w:p><w:r><w:t>Fish &amp; chips</w:t></w:r></w:p><w:p><w:r><w:t>Second</w:t></w:r></w:p>`), 0o644)

	pdfPath := filepath.Join(dir, "scan.pdf")
	os.WriteFile(pdfPath, []byte("not really a pdf"), 0o644)

	tests := []struct {
		name     string
		path     string
		wantText string
		wantType string
	}{
		{"markdown", mdPath, "# Title\n\nbody", domain.SourceTypeText},
		{"docx", docxPath, "Fish & chips\nSecond", domain.SourceTypeDOCX},
		{"pdf placeholder", pdfPath, "PDF content from scan.pdf - PDF parsing not yet implemented", domain.SourceTypePDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := l.LoadFile(tt.path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if doc.Text != tt.wantText {
				t.Errorf("expected text %q, got %q", tt.wantText, doc.Text)
			}
			if doc.SourceType != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, doc.SourceType)
			}
			if doc.Metadata[domain.MetadataKeySource] != tt.path {
				t.Errorf("expected source %s, got %v", tt.path, doc.Metadata[domain.MetadataKeySource])
			}
			if doc.FileName != filepath.Base(tt.path) {
				t.Errorf("expected file name %s, got %s", filepath.Base(tt.path), doc.FileName)
			}
		})
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	_, err := New(nil).LoadFile("/tmp/image.png")
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestLoadContentBase64DOCX(t *testing.T) {
	raw := buildDOCX(t, `<w:p><w:r><w:t>Uploaded</w:t></w:r></w:p>`)
	encoded := "data:application/vnd.openxmlformats-officedocument.wordprocessingml.document;base64," + base64.StdEncoding.EncodeToString(raw)

	doc, err := New(nil).LoadContent("upload.docx", encoded)
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	if doc.Text != "Uploaded" {
		t.Errorf("expected Uploaded, got %q", doc.Text)
	}

	if _, err := New(nil).LoadContent("upload.docx", "%%%"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestLoadContentText(t *testing.T) {
	doc, err := New(nil).LoadContent("readme.txt", "plain text")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "plain text" || doc.Metadata[domain.MetadataKeyFileName] != "readme.txt" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<p>web page</p>"))
	}))
	defer srv.Close()

	l := New(srv.Client())
	doc, err := l.LoadURL(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("LoadURL: %v", err)
	}
	// no HTML extraction
	if doc.Text != "<p>web page</p>" {
		t.Errorf("unexpected text %q", doc.Text)
	}
	if doc.SourceType != domain.SourceTypeWeb || doc.Metadata[domain.MetadataKeySource] != srv.URL+"/page" {
		t.Errorf("unexpected document: %+v", doc)
	}

	if _, err := l.LoadURL(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
}
