// Package urlmeta canonicalizes result URLs for equality comparison and
// derives the domain and document type shown in review and reporting.
package urlmeta

import (
	"net/url"
	"strings"
)

const (
	FileTypeHTML    = "html"
	FileTypeUnknown = "unknown"
)

var documentTypes = map[string]bool{
	"pdf": true, "doc": true, "docx": true,
	"ppt": true, "pptx": true,
	"xls": true, "xlsx": true,
}

// Normalize lowercases rawURL and strips the http(s) scheme, a leading
// "www." and trailing slashes. Query strings, fragments and escapes are left
// as they are. The steps repeat until the string stops changing, so
// Normalize(Normalize(u)) == Normalize(u) for every input.
func Normalize(rawURL string) string {
	normalized := rawURL
	for {
		next := normalizeOnce(normalized)
		if next == normalized {
			return normalized
		}
		normalized = next
	}
}

func normalizeOnce(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(s, "http://"); ok {
		s = rest
	} else if rest, ok := strings.CutPrefix(s, "https://"); ok {
		s = rest
	}
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}

// Domain returns the lowercased host name of rawURL, or "" if it is not an
// absolute URL.
func Domain(rawURL string) string {
	u, ok := parseAbsolute(rawURL)
	if !ok {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// FileType classifies rawURL by the text after the last "." of its path.
// Known document extensions are returned lowercased, anything else is "html",
// and input that does not parse as an absolute URL is "unknown". A path with
// no dot is compared whole, so "/download/pdf" is "html".
func FileType(rawURL string) string {
	u, ok := parseAbsolute(rawURL)
	if !ok {
		return FileTypeUnknown
	}
	p := u.Path
	ext := strings.ToLower(p[strings.LastIndex(p, ".")+1:])
	if documentTypes[ext] {
		return ext
	}
	return FileTypeHTML
}

func parseAbsolute(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() {
		return nil, false
	}
	return u, true
}
