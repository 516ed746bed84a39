package analysis

import (
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestExtractSourcesSplitsBareURLLines(t *testing.T) {
	text := "大盤今日收紅。\n電子股領漲。\nhttps://example.com/a\nhttp://example.com/b"
	content, sources := ExtractSources(text)

	if content != "大盤今日收紅。\n電子股領漲。" {
		t.Errorf("content = %q, want the prose lines only", content)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	if sources[0].URI != "https://example.com/a" || sources[1].URI != "http://example.com/b" {
		t.Errorf("sources = %+v", sources)
	}
}

func TestExtractSourcesDeduplicates(t *testing.T) {
	text := "重點。\nhttps://example.com/a\nhttps://example.com/a"
	_, sources := ExtractSources(text)
	if len(sources) != 1 {
		t.Errorf("sources = %d, want deduplicated to 1", len(sources))
	}
}

func TestExtractSourcesHandlesBulletedURLs(t *testing.T) {
	text := "重點。\n- https://example.com/a\n* https://example.com/b\n• https://example.com/c"
	content, sources := ExtractSources(text)

	if content != "重點。" {
		t.Errorf("content = %q, want bullets stripped out", content)
	}
	if len(sources) != 3 {
		t.Errorf("sources = %d, want 3", len(sources))
	}
}

func TestExtractSourcesNoURLs(t *testing.T) {
	text := "只有文字，沒有連結。"
	content, sources := ExtractSources(text)
	if content != text {
		t.Errorf("content = %q, want unchanged", content)
	}
	if len(sources) != 0 {
		t.Errorf("sources = %d, want none", len(sources))
	}
}

func TestNewClientDefaultsModel(t *testing.T) {
	c := NewClient("test-key", "", testLogger())
	if c.model == "" {
		t.Error("model should default when unset")
	}
	c = NewClient("test-key", "gpt-4o", testLogger())
	if c.model != "gpt-4o" {
		t.Errorf("model = %q, want the configured value", c.model)
	}
}
