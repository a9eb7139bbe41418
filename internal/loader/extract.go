package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFPlaceholder is stored when no text can be extracted from a PDF
func PDFPlaceholder(fileName string) string {
	return fmt.Sprintf("PDF content from %s - PDF parsing not yet implemented", fileName)
}

func extractPDF(raw []byte, fileName string) string {
	text, err := pdfText(raw)
	if err != nil || text == "" {
		return PDFPlaceholder(fileName)
	}
	return text
}

func pdfText(raw []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return normalizeExtractedText(b.String()), nil
}

func extractDOCX(raw []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var documentXML []byte
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		break
	}
	if len(documentXML) == 0 {
		return "", errors.New("docx document.xml not found")
	}

	return normalizeExtractedText(stripDOCXML(documentXML)), nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

var xmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

func stripDOCXML(src []byte) string {
	s := string(src)

	// paragraphs and breaks
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	s = xmlTagPattern.ReplaceAllString(s, "")
	return xmlEntities.Replace(s)
}
