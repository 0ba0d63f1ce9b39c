package bdispatch

import (
	"mime"
	"strings"
)

// Content types the pipeline treats specially.
const (
	MimeHTML       = "text/html"
	MimeJSON       = "application/json"
	MimeJavaScript = "application/javascript"
	MimeXML        = "application/xml"
	MimePlainText  = "text/plain"
	MimeBinary     = "application/octet-stream"

	// UTF8Suffix is appended to content types configured to carry an explicit charset.
	UTF8Suffix = "; charset=utf-8"
)

// MediaType returns the lower-cased media type of ct without parameters.
func MediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = ct[:i]
		}

		return strings.ToLower(strings.TrimSpace(ct))
	}

	return mt
}

// MatchesContentType reports whether both content types share a media type, ignoring parameters.
func MatchesContentType(ct, match string) bool {
	return MediaType(ct) == MediaType(match)
}

// isJSONFamily reports whether ct names a JSON payload, e.g. "application/json" or "application/problem+json".
func isJSONFamily(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "json")
}
