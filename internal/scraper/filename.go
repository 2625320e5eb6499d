package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/selfie-finder/internal/constants"
)

var unsafeChars = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// removeDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SafeFilename makes name usable as a file name. Path and shell
// metacharacters become underscores and diacritics are dropped.
// A blank result is replaced by "image".
func SafeFilename(name string) string {
	name = removeDiacritics(unsafeChars.Replace(name))
	if strings.TrimSpace(name) == "" {
		return "image"
	}
	return name
}

// PageSlug turns the path of pageURL into a filename prefix:
// "/2024/11/gallery/" becomes "2024_11_gallery", an empty path "root".
func PageSlug(pageURL string) string {
	var p string
	if u, err := url.Parse(pageURL); err == nil {
		p = u.EscapedPath()
	}
	p = strings.ReplaceAll(strings.Trim(p, "/"), "/", "_")
	if p == "" {
		p = "root"
	}
	return SafeFilename(p)
}

// IsImageURL reports whether the URL path ends in a known image extension.
func IsImageURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, ext := range constants.ScrapeImageExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// BuildFilename names the file an image is saved to:
// "{page slug}_{index}_{name}{ext}". URLs without a usable file name
// fall back to "img_{index}.jpg".
func BuildFilename(imgURL, pageURL string, index int) string {
	var p string
	if u, err := url.Parse(imgURL); err == nil {
		p = u.EscapedPath()
	}

	base := p[strings.LastIndex(p, "/")+1:]
	if base == "" || !strings.Contains(base, ".") {
		base = fmt.Sprintf("img_%d.jpg", index)
	}

	name, ext := splitExt(base)
	if ext == "" {
		ext = ".jpg"
	}

	return fmt.Sprintf("%s_%d_%s%s", PageSlug(pageURL), index, SafeFilename(name), unsafeChars.Replace(ext))
}

// splitExt splits base at its last dot. Leading dots belong to the name,
// so ".hidden" has no extension.
func splitExt(base string) (name, ext string) {
	i := strings.LastIndex(base, ".")
	if i <= 0 || strings.Trim(base[:i], ".") == "" {
		return base, ""
	}
	return base[:i], base[i:]
}
