package utils

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

// ContentHash fingerprints a normalized quote within its language as the hex
// MD5 of "language|text". It is a dedup key, not a security primitive.
func ContentHash(language, text string) string {
	sum := md5.Sum([]byte(language + "|" + text))
	return hex.EncodeToString(sum[:])
}

// SourceURL builds the public page link for a title: spaces become underscores
// and every path segment is escaped while keeping the '/' separators.
func SourceURL(baseURL, title string) string {
	segments := strings.Split(strings.ReplaceAll(title, " ", "_"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return baseURL + strings.Join(segments, "/")
}
