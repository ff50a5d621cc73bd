package markup

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"notes.md", FormatMarkdown},
		{"notes.MARKDOWN", FormatMarkdown},
		{"book.epub", FormatEPUB},
		{"plain.txt", FormatText},
	}

	for _, tt := range tests {
		got, err := DetectFormat(tt.filename)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.filename, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.filename, tt.want, got)
		}
	}

	if _, err := DetectFormat("photo.jpg"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("markdown"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractMarkdown(t *testing.T) {
	src := "# 第一章\n\n正文第一段，有一个[链接](https://example.com)。\n\n```\ncode block\n```\n\n* 列表甲\n* 列表乙\n"

	got, err := ExtractText(FormatMarkdown, []byte(src))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}

	for _, want := range []string{"第一章", "正文第一段", "链接", "列表甲"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in extracted text:\n%s", want, got)
		}
	}
	if strings.Contains(got, "](") || strings.Contains(got, "# ") {
		t.Errorf("markdown syntax survived extraction:\n%s", got)
	}
}

func TestExtractText(t *testing.T) {
	got, err := ExtractText(FormatText, []byte("纯文本内容。"))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if got != "纯文本内容。" {
		t.Errorf("plain text should pass through unchanged, got %q", got)
	}
}

func TestExtractEPUB(t *testing.T) {
	data := buildEPUB(t, "测试书名", map[string]string{
		"ch1.xhtml": "<html><body><h1>第一章</h1><p>第一章内容。</p></body></html>",
		"ch2.xhtml": "<html><body><h2>第二章</h2><p>第二章内容。</p></body></html>",
	}, []string{"ch1.xhtml", "ch2.xhtml"})

	got, err := ExtractText(FormatEPUB, data)
	if err != nil {
		t.Fatalf("failed to extract epub: %v", err)
	}

	for _, want := range []string{"测试书名", "第一章内容", "第二章内容"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in extracted text:\n%s", want, got)
		}
	}

	// Chapters arrive in spine order.
	if strings.Index(got, "第一章内容") > strings.Index(got, "第二章内容") {
		t.Errorf("chapters out of spine order:\n%s", got)
	}
}

func TestExtractEPUBSkipsBrokenChapter(t *testing.T) {
	// ch1 is listed in the spine but missing from the archive; ch2 is fine.
	data := buildEPUB(t, "残本", map[string]string{
		"ch2.xhtml": "<html><body><p>幸存章节。</p></body></html>",
	}, []string{"ch1.xhtml", "ch2.xhtml"})

	got, err := ExtractText(FormatEPUB, data)
	if err != nil {
		t.Fatalf("failed to extract epub: %v", err)
	}
	if !strings.Contains(got, "幸存章节") {
		t.Errorf("surviving chapter missing:\n%s", got)
	}
}

func TestExtractEPUBNoChapters(t *testing.T) {
	data := buildEPUB(t, "空书", map[string]string{}, []string{"ch1.xhtml"})

	if _, err := ExtractText(FormatEPUB, data); err == nil {
		t.Error("expected error for epub with no readable chapters")
	}
}

// buildEPUB assembles a minimal valid EPUB archive in memory.
func buildEPUB(t *testing.T, title string, chapters map[string]string, spine []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	write := func(name, content string) {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	write("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spineXML strings.Builder
	for i, href := range spine {
		manifest.WriteString(`<item id="ch` + string(rune('1'+i)) + `" href="` + href + `" media-type="application/xhtml+xml"/>`)
		spineXML.WriteString(`<itemref idref="ch` + string(rune('1'+i)) + `"/>`)
	}

	write("OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata><dc:title>`+title+`</dc:title></metadata>
  <manifest>`+manifest.String()+`</manifest>
  <spine>`+spineXML.String()+`</spine>
</package>`)

	for name, content := range chapters {
		write("OEBPS/"+name, content)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}

	return buf.Bytes()
}
