package text

import (
	"strings"
	"testing"
)

func TestNormalizeReplacesURLs(t *testing.T) {
	got := NormalizeForSpeech("详情见 https://example.com/a/b 页面。")
	if strings.Contains(got, "example.com") {
		t.Errorf("URL survived normalization: %q", got)
	}
	if !strings.Contains(got, "网址") {
		t.Errorf("expected URL placeholder, got %q", got)
	}
}

func TestNormalizeStripsMarkdownMarkers(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		avoid string
	}{
		{"header", "# 标题文字", "标题文字", "#"},
		{"bold", "这是**重点**内容", "重点", "*"},
		{"link keeps text", "看[这篇文章](https://example.com)吧", "这篇文章", "]("},
		{"inline code dropped", "运行`rm -rf`命令", "命令", "`"},
		{"blockquote", "> 引用的话", "引用的话", ">"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeForSpeech(tt.in)
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in output, got %q", tt.want, got)
			}
			if strings.Contains(got, tt.avoid) {
				t.Errorf("marker %q survived: %q", tt.avoid, got)
			}
		})
	}
}

func TestNormalizeImageAltTextDropped(t *testing.T) {
	got := NormalizeForSpeech("前文![配图说明](img.png)后文")
	if strings.Contains(got, "配图说明") {
		t.Errorf("image alt text should be dropped, got %q", got)
	}
}

func TestNormalizeNewlinesBecomeSentenceBreaks(t *testing.T) {
	got := NormalizeForSpeech("第一段\n\n第二段")
	if !strings.Contains(got, "第一段。") {
		t.Errorf("expected paragraph break to become 。, got %q", got)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("newline survived: %q", got)
	}
}

func TestNormalizeFullWidthPunctuation(t *testing.T) {
	got := NormalizeForSpeech("甲,乙;丙(丁)")
	for _, bad := range []string{",", ";", "(", ")"} {
		if strings.Contains(got, bad) {
			t.Errorf("ASCII %q survived: %q", bad, got)
		}
	}
	if !strings.Contains(got, "，") || !strings.Contains(got, "（") {
		t.Errorf("expected full-width punctuation, got %q", got)
	}
}

func TestNormalizeCollapsesPunctuationRuns(t *testing.T) {
	got := NormalizeForSpeech("真的吗，，，。")
	if strings.Contains(got, "，，") {
		t.Errorf("duplicate pause marks survived: %q", got)
	}
	// A terminator inside the run wins over the pause marks.
	if !strings.HasSuffix(got, "。") {
		t.Errorf("expected run to collapse to 。, got %q", got)
	}
}

func TestNormalizeScriptBoundarySpacing(t *testing.T) {
	got := NormalizeForSpeech("使用Go语言")
	if !strings.Contains(got, "使用 Go 语言") {
		t.Errorf("expected spacing at script boundaries, got %q", got)
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	got := NormalizeForSpeech("word   spaced\tout")
	if strings.Contains(got, "  ") || strings.Contains(got, "\t") {
		t.Errorf("whitespace run survived: %q", got)
	}
}
