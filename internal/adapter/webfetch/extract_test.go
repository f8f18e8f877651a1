package webfetch

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractReadable(t *testing.T) {
	page := `<html><head><title>Acme Report</title></head><body>
<nav><p>navigation junk</p></nav>
<article>
  <p>First paragraph of content.</p>
  <script>var x = 1;</script>
  <p>Second paragraph of content.</p>
</article>
<footer><p>footer junk</p></footer>
</body></html>`

	title, text, err := ExtractReadable(page)
	if err != nil {
		t.Fatalf("ExtractReadable failed: %v", err)
	}
	if title != "Acme Report" {
		t.Errorf("title = %q", title)
	}
	if text != "First paragraph of content.\nSecond paragraph of content." {
		t.Errorf("text = %q", text)
	}
}

func TestExtractReadableWholeDocFallback(t *testing.T) {
	page := `<html><head><title>No Regions</title></head><body>
<div><p>Body paragraph.</p></div>
</body></html>`

	_, text, err := ExtractReadable(page)
	if err != nil {
		t.Fatalf("ExtractReadable failed: %v", err)
	}
	if text != "Body paragraph." {
		t.Errorf("text = %q", text)
	}
}

func TestExtractReadableSkipsChrome(t *testing.T) {
	page := `<html><body><main>
<p>Real <span>inline</span>   text.</p>
<aside><p>sidebar junk</p></aside>
</main></body></html>`

	_, text, err := ExtractReadable(page)
	if err != nil {
		t.Fatalf("ExtractReadable failed: %v", err)
	}
	if strings.Contains(text, "sidebar") {
		t.Errorf("aside content leaked: %q", text)
	}
	if text != "Real inline text." {
		t.Errorf("whitespace not collapsed: %q", text)
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		window     int
		overlap    int
		min        int
		wantCount  int
		firstStart string
	}{
		{
			name:      "empty text",
			text:      "",
			window:    10,
			overlap:   2,
			min:       1,
			wantCount: 0,
		},
		{
			name:       "single short window",
			text:       "abcdef",
			window:     10,
			overlap:    2,
			min:        1,
			wantCount:  1,
			firstStart: "abcdef",
		},
		{
			name:      "tail below minimum dropped",
			text:      strings.Repeat("a", 12),
			window:    10,
			overlap:   0,
			min:       5,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Window(tt.text, tt.window, tt.overlap, tt.min)
			if len(got) != tt.wantCount {
				t.Fatalf("got %d windows, want %d", len(got), tt.wantCount)
			}
			if tt.firstStart != "" && got[0] != tt.firstStart {
				t.Errorf("first window = %q, want %q", got[0], tt.firstStart)
			}
		})
	}
}

func TestWindowMultibyte(t *testing.T) {
	text := strings.Repeat("あ", 1000)
	got := Window(text, 800, 200, 200)

	if len(got) == 0 {
		t.Fatal("no windows produced")
	}
	for i, w := range got {
		if !utf8.ValidString(w) {
			t.Errorf("window %d is not valid UTF-8", i)
		}
	}
	if n := utf8.RuneCountInString(got[0]); n != 800 {
		t.Errorf("first window has %d characters, want 800", n)
	}
}

func TestWindowOverlap(t *testing.T) {
	text := strings.Repeat("x", 20)
	got := Window(text, 10, 4, 1)

	// Starts advance by window-overlap: 0, 6, 12.
	if len(got) != 3 {
		t.Fatalf("got %d windows, want 3", len(got))
	}
	for i, w := range got[:2] {
		if len(w) != 10 {
			t.Errorf("window %d has length %d, want 10", i, len(w))
		}
	}
	if len(got[2]) != 8 {
		t.Errorf("tail window has length %d, want 8", len(got[2]))
	}
}
