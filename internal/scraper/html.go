package scraper

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	anchorSelector = cascadia.MustCompile("a")
	imgSelector    = cascadia.MustCompile("img")
)

// imageSourceAttrs are checked in order; lazy-loading themes leave src empty.
var imageSourceAttrs = []string{"src", "data-src", "data-lazy-src"}

// extractLinks returns the absolute http(s) targets of the anchors in doc
// matched by sel, in document order and without duplicates.
func extractLinks(doc *html.Node, base *url.URL, sel cascadia.Matcher) []string {
	if sel == nil {
		sel = anchorSelector
	}

	var hrefs []string
	for _, n := range cascadia.QueryAll(doc, sel) {
		hrefs = append(hrefs, getAttributeValue(n, "href"))
	}
	return resolveAll(base, hrefs, true)
}

// extractImages returns the absolute sources of every <img> in doc, in
// document order and without duplicates. Non-http sources such as data:
// URIs are kept so every image takes its place in the numbering.
func extractImages(doc *html.Node, base *url.URL) []string {
	var srcs []string
	for _, n := range cascadia.QueryAll(doc, imgSelector) {
		for _, attr := range imageSourceAttrs {
			if v := getAttributeValue(n, attr); v != "" {
				srcs = append(srcs, v)
				break
			}
		}
	}
	return resolveAll(base, srcs, false)
}

func resolveAll(base *url.URL, refs []string, httpOnly bool) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))

	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		u, err := base.Parse(ref)
		if err != nil {
			continue
		}
		if httpOnly && !isHTTP(u) {
			continue
		}
		abs := u.String()
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

func isHTTP(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}

func getAttributeValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
