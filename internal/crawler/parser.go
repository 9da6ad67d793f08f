package crawler

import (
	"regexp"
	"strconv"
)

var (
	imageURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>\[\]]*?\.(?:jpg|jpeg|png|bmp)`)
	unicodeEscape   = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)
)

// ParseImageURLs pulls image links out of a script body from a result page.
// Result pages embed URLs JSON-escaped, so \uXXXX sequences are decoded.
// Duplicates are dropped, first occurrence wins.
func ParseImageURLs(script string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, raw := range imageURLPattern.FindAllString(script, -1) {
		u := unescape(raw)
		if seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

func unescape(s string) string {
	return unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})
}
