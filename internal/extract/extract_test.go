package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	e := NewFileExtractor()
	text, err := e.Extract([]byte("  plain text content\n"), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "plain text content" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractUnknownExtensionDecodesBytes(t *testing.T) {
	e := NewFileExtractor()
	text, err := e.Extract([]byte("log line one\nlog line two"), "server.log")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "log line two") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractDropsInvalidUTF8(t *testing.T) {
	e := NewFileExtractor()
	text, err := e.Extract([]byte{'o', 'k', 0xff, 0xfe, '!', '\n'}, "data.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok!" {
		t.Fatalf("expected lossy decode, got %q", text)
	}
}

func TestExtractHTML(t *testing.T) {
	page := `<html><head>
<style>body { color: red }</style>
<script>alert("skip me")</script>
</head><body>
<h1>Quarterly Report</h1>
<p>Revenue grew <b>12%</b> year over year.</p>
</body></html>`
	e := NewFileExtractor()
	text, err := e.Extract([]byte(page), "report.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Quarterly Report") || !strings.Contains(text, "Revenue grew") {
		t.Fatalf("body text missing: %q", text)
	}
	if strings.Contains(text, "skip me") || strings.Contains(text, "color: red") {
		t.Fatalf("script/style leaked into text: %q", text)
	}
}

func TestExtractMarkdown(t *testing.T) {
	md := "# Title\n\nFirst paragraph with *emphasis*.\n\n- item one\n- item two\n"
	e := NewFileExtractor()
	text, err := e.Extract([]byte(md), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Title", "First paragraph with", "emphasis", "item one", "item two"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in %q", want, text)
		}
	}
	if strings.Contains(text, "#") || strings.Contains(text, "*") {
		t.Fatalf("markup leaked into text: %q", text)
	}
}

func TestExtractCorruptParserInputDegradesToBytes(t *testing.T) {
	e := NewFileExtractor()
	// Not a real PDF; the parser fails and the raw bytes are decoded.
	text, err := e.Extract([]byte("this is not a pdf"), "fake.pdf")
	if err != nil {
		t.Fatalf("degraded extraction must not error: %v", err)
	}
	if text != "this is not a pdf" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>hello from the page</p></body></html>"))
	}))
	defer srv.Close()

	e := NewFileExtractor()
	text, err := e.ExtractFromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "hello from the page") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractFromURLNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := NewFileExtractor()
	if _, err := e.ExtractFromURL(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
