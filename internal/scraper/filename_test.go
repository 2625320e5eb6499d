package scraper

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "photo", "photo"},
		{"reserved characters", `a\b/c*d?e:f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"diacritics", "Jiří Žlutý", "Jiri Zluty"},
		{"empty", "", "image"},
		{"whitespace only", "   ", "image"},
		{"keeps dots and dashes", "img-01.final", "img-01.final"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFilename(tt.input); got != tt.expected {
				t.Errorf("SafeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPageSlug(t *testing.T) {
	tests := []struct {
		pageURL  string
		expected string
	}{
		{"https://example.com/", "root"},
		{"https://example.com", "root"},
		{"https://example.com/2024/11/gallery/", "2024_11_gallery"},
		{"https://example.com/day-1", "day-1"},
		{"https://example.com/a:b/", "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.pageURL, func(t *testing.T) {
			if got := PageSlug(tt.pageURL); got != tt.expected {
				t.Errorf("PageSlug(%q) = %q, want %q", tt.pageURL, got, tt.expected)
			}
		})
	}
}

func TestBuildFilename(t *testing.T) {
	tests := []struct {
		name     string
		imgURL   string
		pageURL  string
		index    int
		expected string
	}{
		{
			name:     "regular image",
			imgURL:   "https://example.com/uploads/team.png",
			pageURL:  "https://example.com/gallery/",
			index:    3,
			expected: "gallery_3_team.png",
		},
		{
			name:     "query string ignored",
			imgURL:   "https://example.com/uploads/team.jpeg?w=2000",
			pageURL:  "https://example.com/",
			index:    1,
			expected: "root_1_team.jpeg",
		},
		{
			name:     "no extension",
			imgURL:   "https://example.com/render/12345",
			pageURL:  "https://example.com/day/1/",
			index:    7,
			expected: "day_1_7_img_7.jpg",
		},
		{
			name:     "trailing slash",
			imgURL:   "https://example.com/uploads/",
			pageURL:  "https://example.com/",
			index:    2,
			expected: "root_2_img_2.jpg",
		},
		{
			name:     "hidden file has no extension",
			imgURL:   "https://example.com/.hidden.",
			pageURL:  "https://example.com/",
			index:    4,
			expected: "root_4_.hidden.",
		},
		{
			name:     "leading dots only",
			imgURL:   "https://example.com/..photo",
			pageURL:  "https://example.com/",
			index:    5,
			expected: "root_5_..photo.jpg",
		},
		{
			name:     "percent encoded name kept",
			imgURL:   "https://example.com/my%20photo.jpg",
			pageURL:  "https://example.com/",
			index:    6,
			expected: "root_6_my%20photo.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildFilename(tt.imgURL, tt.pageURL, tt.index); got != tt.expected {
				t.Errorf("BuildFilename() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		input, name, ext string
	}{
		{"photo.jpg", "photo", ".jpg"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{".bashrc", ".bashrc", ""},
		{"..a", "..a", ""},
		{"a.", "a", "."},
		{"noext", "noext", ""},
	}

	for _, tt := range tests {
		name, ext := splitExt(tt.input)
		if name != tt.name || ext != tt.ext {
			t.Errorf("splitExt(%q) = (%q, %q), want (%q, %q)", tt.input, name, ext, tt.name, tt.ext)
		}
	}
}

func TestIsImageURL(t *testing.T) {
	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/a.jpg", true},
		{"https://example.com/a.JPEG", true},
		{"https://example.com/a.webp?x=1", true},
		{"https://example.com/a.tiff", true},
		{"https://example.com/a.svg", false},
		{"https://example.com/gallery/", false},
		{"https://example.com/page?file=a.jpg", false},
	}

	for _, tt := range tests {
		if got := IsImageURL(tt.url); got != tt.expected {
			t.Errorf("IsImageURL(%q) = %v, want %v", tt.url, got, tt.expected)
		}
	}
}

func TestImageIsBigEnough(t *testing.T) {
	data := encodeTestPNG(t, 120, 80)

	tests := []struct {
		name       string
		minW, minH int
		expected   bool
	}{
		{"exact size", 120, 80, true},
		{"smaller minimum", 100, 50, true},
		{"too narrow", 121, 80, false},
		{"too short", 120, 81, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok, err := ImageIsBigEnough(data, tt.minW, tt.minH)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w != 120 || h != 80 {
				t.Errorf("expected 120x80, got %dx%d", w, h)
			}
			if ok != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, ok)
			}
		})
	}

	if _, _, ok, err := ImageIsBigEnough([]byte("<html>not an image</html>"), 0, 0); err == nil || ok {
		t.Errorf("expected garbage to be rejected, got ok=%v err=%v", ok, err)
	}
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}
