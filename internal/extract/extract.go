// Package extract turns uploaded document bytes into plain text. It is
// the default implementation of the extraction boundary; any stage that
// fails degrades to best-effort byte decoding rather than erroring the
// whole upload.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Extractor is the text-extraction collaborator boundary.
type Extractor interface {
	Extract(data []byte, filename string) (string, error)
	ExtractFromURL(ctx context.Context, url string) (string, error)
}

// maxURLBody bounds how much of a fetched page is read.
const maxURLBody = 10 << 20

// FileExtractor handles PDF, DOCX, XLSX, ODS, HTML, markdown and plain
// text, degrading to a lossy UTF-8 decode for anything else.
type FileExtractor struct {
	client *http.Client
}

var _ Extractor = (*FileExtractor)(nil)

func NewFileExtractor() *FileExtractor {
	return &FileExtractor{client: &http.Client{Timeout: 30 * time.Second}}
}

func (e *FileExtractor) Extract(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var text string
	var err error
	switch ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".xlsx":
		text, err = extractXLSX(data)
	case ".ods":
		text, err = extractODS(data)
	case ".html", ".htm":
		text, err = extractHTML(data)
	case ".md", ".markdown":
		text, err = extractMarkdown(data)
	default:
		return decodeBytes(data), nil
	}
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("parser failed, decoding bytes as text")
		return decodeBytes(data), nil
	}
	return strings.TrimSpace(text), nil
}

func (e *FileExtractor) ExtractFromURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxURLBody))
	if err != nil {
		return "", err
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		return e.Extract(data, "page.html")
	}
	return e.Extract(data, filepath.Base(url))
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Keep whatever the remaining pages give us.
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()
	return r.Editable().GetContent(), nil
}

func extractXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, sheet := range f.Sheets {
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				sb.WriteString(cell.String() + "\t")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func extractODS(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()
	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				sb.WriteString(cell + "\t")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String(), nil
}

func extractMarkdown(data []byte) (string, error) {
	parser := goldmark.DefaultParser()
	root := parser.Parse(gmtext.NewReader(data))
	var sb strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(data))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// decodeBytes is the last-resort decode: keep valid UTF-8, drop the rest.
func decodeBytes(data []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}
